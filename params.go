package deform

import (
	"fmt"
	"runtime"
)

const (
	DefaultSpringStiffness    = 20.0
	DefaultDampingCoefficient = 5.0
	DefaultForceMultiplier    = 50.0

	// Below this vertex count the per-vertex loops stay on the calling goroutine.
	DefaultParallelThreshold = 4096
)

// SimulationParameters holds the tunables shared by every vertex of a simulator.
// They are set once at construction and read on every step.
type SimulationParameters struct {
	SpringStiffness    float32
	DampingCoefficient float32
	ForceMultiplier    float32

	Workers           int
	ParallelThreshold int
}

func NewSimulationParameters() SimulationParameters {
	return SimulationParameters{
		SpringStiffness:    DefaultSpringStiffness,
		DampingCoefficient: DefaultDampingCoefficient,
		ForceMultiplier:    DefaultForceMultiplier,
		Workers:            runtime.GOMAXPROCS(0),
		ParallelThreshold:  DefaultParallelThreshold,
	}
}

func (p SimulationParameters) Validate() error {
	if p.SpringStiffness <= 0 {
		return fmt.Errorf("%w: spring stiffness must be positive, got %v", ErrInvalidInput, p.SpringStiffness)
	}
	if p.DampingCoefficient <= 0 {
		return fmt.Errorf("%w: damping coefficient must be positive, got %v", ErrInvalidInput, p.DampingCoefficient)
	}
	if p.ForceMultiplier <= 0 {
		return fmt.Errorf("%w: force multiplier must be positive, got %v", ErrInvalidInput, p.ForceMultiplier)
	}
	if p.Workers < 0 || p.ParallelThreshold < 0 {
		return fmt.Errorf("%w: workers and parallel threshold must not be negative", ErrInvalidInput)
	}
	return nil
}
