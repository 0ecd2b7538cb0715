package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "LEAFSIM"

type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Mesh       MeshConfig       `mapstructure:"mesh" yaml:"mesh"`
	Run        RunConfig        `mapstructure:"run" yaml:"run"`
	Impacts    []ImpactConfig   `mapstructure:"impacts" yaml:"impacts"`
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
}

type SimulationConfig struct {
	SpringStiffness    float32 `mapstructure:"spring_stiffness" yaml:"spring_stiffness"`
	DampingCoefficient float32 `mapstructure:"damping_coefficient" yaml:"damping_coefficient"`
	ForceMultiplier    float32 `mapstructure:"force_multiplier" yaml:"force_multiplier"`
	// 0 means GOMAXPROCS.
	Workers           int `mapstructure:"workers" yaml:"workers"`
	ParallelThreshold int `mapstructure:"parallel_threshold" yaml:"parallel_threshold"`
}

type MeshConfig struct {
	Cols int     `mapstructure:"cols" yaml:"cols"`
	Rows int     `mapstructure:"rows" yaml:"rows"`
	Size float32 `mapstructure:"size" yaml:"size"`
	// Optional image whose red channel is the per-vertex stiffness.
	SoftnessMap string  `mapstructure:"softness_map" yaml:"softness_map"`
	Scale       float32 `mapstructure:"scale" yaml:"scale"`
}

type RunConfig struct {
	Frames   int    `mapstructure:"frames" yaml:"frames"`
	FPS      int    `mapstructure:"fps" yaml:"fps"`
	Realtime bool   `mapstructure:"realtime" yaml:"realtime"`
	Sink     string `mapstructure:"sink" yaml:"sink"`
	Output   string `mapstructure:"output" yaml:"output"`
}

// ImpactConfig schedules a contact at a world-space point on a given frame.
type ImpactConfig struct {
	Frame int     `mapstructure:"frame" yaml:"frame"`
	X     float32 `mapstructure:"x" yaml:"x"`
	Y     float32 `mapstructure:"y" yaml:"y"`
	Z     float32 `mapstructure:"z" yaml:"z"`
	Mass  float32 `mapstructure:"mass" yaml:"mass"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

func (l LoggerConfig) Debug() bool { return strings.EqualFold(l.Level, "debug") }

// SetDefaults registers every recognized key with its default value.
func SetDefaults(v *viper.Viper) {
	// -- Simulation --
	v.SetDefault("simulation.spring_stiffness", 20.0)
	v.SetDefault("simulation.damping_coefficient", 5.0)
	v.SetDefault("simulation.force_multiplier", 50.0)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.parallel_threshold", 4096)

	// -- Mesh --
	v.SetDefault("mesh.cols", 16)
	v.SetDefault("mesh.rows", 16)
	v.SetDefault("mesh.size", 2.0)
	v.SetDefault("mesh.softness_map", "")
	v.SetDefault("mesh.scale", 1.0)

	// -- Run --
	v.SetDefault("run.frames", 300)
	v.SetDefault("run.fps", 60)
	v.SetDefault("run.realtime", false)
	v.SetDefault("run.sink", "jsonl")
	v.SetDefault("run.output", "")

	// -- Impacts --
	v.SetDefault("impacts", []map[string]any{
		{"frame": 1, "x": 0.0, "y": 0.0, "z": 0.0, "mass": 1.0},
	})

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.compress", false)
}

// NewDefaultConfig returns the configuration used when no file or env is set.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewViper returns a viper instance with defaults and LEAFSIM_* env binding.
// An empty path reads ./leafsim.yaml when it exists.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("leafsim")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Simulation.SpringStiffness <= 0 {
		return fmt.Errorf("simulation.spring_stiffness must be positive")
	}
	if c.Simulation.DampingCoefficient <= 0 {
		return fmt.Errorf("simulation.damping_coefficient must be positive")
	}
	if c.Simulation.ForceMultiplier <= 0 {
		return fmt.Errorf("simulation.force_multiplier must be positive")
	}
	if c.Simulation.Workers < 0 || c.Simulation.ParallelThreshold < 0 {
		return fmt.Errorf("simulation.workers and simulation.parallel_threshold must not be negative")
	}
	if c.Mesh.Cols < 1 || c.Mesh.Rows < 1 {
		return fmt.Errorf("mesh.cols and mesh.rows must be at least 1")
	}
	if c.Mesh.Size <= 0 {
		return fmt.Errorf("mesh.size must be positive")
	}
	if c.Mesh.Scale <= 0 {
		return fmt.Errorf("mesh.scale must be positive")
	}
	if c.Run.FPS <= 0 {
		return fmt.Errorf("run.fps must be a positive integer")
	}
	if c.Run.Frames < 0 {
		return fmt.Errorf("run.frames must not be negative")
	}
	switch c.Run.Sink {
	case "jsonl", "terminal", "none":
	default:
		return fmt.Errorf("run.sink must be one of jsonl, terminal, none; got %q", c.Run.Sink)
	}
	for i, imp := range c.Impacts {
		if imp.Frame < 0 {
			return fmt.Errorf("impacts[%d].frame must not be negative", i)
		}
		if imp.Mass < 0 {
			return fmt.Errorf("impacts[%d].mass must not be negative", i)
		}
	}
	return nil
}

// WriteFile stores c as YAML, refusing to overwrite an existing file.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}
