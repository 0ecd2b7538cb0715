package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gekko3d/deform"
	"github.com/gekko3d/deform/config"
	"github.com/gekko3d/deform/sink"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func newRunCmd(cfgFile *string) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a grid leaf, apply the configured impacts and stream the geometry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViper(*cfgFile)
			if err != nil {
				return err
			}
			for key, flag := range map[string]string{
				"run.frames":   "frames",
				"run.fps":      "fps",
				"run.sink":     "sink",
				"run.output":   "output",
				"run.realtime": "realtime",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			return runSimulation(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().Int("frames", 300, "number of frames to simulate")
	runCmd.Flags().Int("fps", 60, "simulation frame rate")
	runCmd.Flags().String("sink", "jsonl", "geometry sink: jsonl, terminal or none")
	runCmd.Flags().StringP("output", "o", "", "jsonl output file (default stdout)")
	runCmd.Flags().Bool("realtime", false, "pace frames at the configured fps")
	return runCmd
}

func runSimulation(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := deform.NewLogger(deform.LoggerOptions{
		Prefix:     "leafsim",
		Debug:      cfg.Logger.Debug(),
		Console:    os.Stderr,
		LogFile:    cfg.Logger.LogFile,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		Compress:   cfg.Logger.Compress,
	})
	defer logger.Sync()

	mesh := deform.NewGridMesh(cfg.Mesh.Cols, cfg.Mesh.Rows, cfg.Mesh.Size)
	if cfg.Mesh.SoftnessMap != "" {
		img, err := deform.LoadSoftnessMap(cfg.Mesh.SoftnessMap)
		if err != nil {
			return err
		}
		mesh.ApplyColorMap(img)
	}

	params := deform.NewSimulationParameters()
	params.SpringStiffness = cfg.Simulation.SpringStiffness
	params.DampingCoefficient = cfg.Simulation.DampingCoefficient
	params.ForceMultiplier = cfg.Simulation.ForceMultiplier
	params.ParallelThreshold = cfg.Simulation.ParallelThreshold
	if cfg.Simulation.Workers > 0 {
		params.Workers = cfg.Simulation.Workers
	}

	geometry, closeSink, err := openSink(cfg.Run, mesh.Positions, stdout)
	if err != nil {
		return err
	}
	defer closeSink()

	transform := deform.NewTransform()
	transform.Scale = mgl32.Vec3{cfg.Mesh.Scale, cfg.Mesh.Scale, cfg.Mesh.Scale}

	opts := []deform.DeformerOption{deform.WithTransform(transform), deform.WithLogger(logger)}
	if geometry != nil {
		opts = append(opts, deform.WithSink(geometry))
	}
	leaf, err := deform.NewDeformer(mesh, params, opts...)
	if err != nil {
		return err
	}

	scene := deform.NewScene()
	id := scene.Add(leaf)

	schedule := make(map[uint64][]deform.ImpactEvent)
	for _, imp := range cfg.Impacts {
		schedule[uint64(imp.Frame)] = append(schedule[uint64(imp.Frame)], deform.ImpactEvent{
			ContactPoint: mgl32.Vec3{imp.X, imp.Y, imp.Z},
			ActorMass:    imp.Mass,
		})
	}

	app := deform.NewApp()
	app.Commands().AddResources(logger)
	app.UseModules(
		deform.TimeModule{Fixed: time.Second / time.Duration(cfg.Run.FPS)},
		deform.DeformModule{Scene: scene},
	)
	app.UseSystem(deform.System(func(cmd *deform.Commands, scene *deform.Scene) {
		for _, ev := range schedule[cmd.Frame()] {
			if err := scene.QueueImpact(id, ev); err != nil {
				cmd.Logger().Errorf("queue impact: %v", err)
			}
		}
	}).InStage(deform.PreUpdate))

	logger.Infof("simulating %d vertices for %d frames at %d fps", leaf.Simulator().Len(), cfg.Run.Frames, cfg.Run.FPS)

	if cfg.Run.Realtime {
		limiter := rate.NewLimiter(rate.Limit(cfg.Run.FPS), 1)
		for i := 0; cfg.Run.Frames <= 0 || i < cfg.Run.Frames; i++ {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			app.Step()
		}
	} else if err := app.Run(ctx, cfg.Run.Frames); err != nil {
		return err
	}

	logger.Infof("done after %d frames, kinetic energy %.6f", leaf.Frame(), leaf.Simulator().KineticEnergy())
	return nil
}

func openSink(run config.RunConfig, rest []mgl32.Vec3, stdout io.Writer) (deform.GeometrySink, func(), error) {
	switch run.Sink {
	case "none":
		return nil, func() {}, nil
	case "terminal":
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, nil, fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return nil, nil, fmt.Errorf("init terminal: %w", err)
		}
		return sink.NewTerminal(screen, rest), screen.Fini, nil
	default:
		if run.Output == "" {
			return sink.NewJSONLines(stdout, 1), func() {}, nil
		}
		f, err := os.Create(run.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		return sink.NewJSONLines(f, 1), func() { f.Close() }, nil
	}
}
