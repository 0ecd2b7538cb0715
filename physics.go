package deform

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// SpringSimulator advances a fixed set of vertices, each one an independent
// damped spring pulling its displaced position back towards its rest position.
//
// The rest, displaced and velocity slices are index-aligned and keep the
// length set by Initialize. Only the simulator writes to them.
type SpringSimulator struct {
	params SimulationParameters

	rest      []mgl32.Vec3
	displaced []mgl32.Vec3
	velocity  []mgl32.Vec3
	softness  []float32
}

func NewSpringSimulator(params SimulationParameters) *SpringSimulator {
	return &SpringSimulator{params: params}
}

// Initialize copies the rest positions and per-vertex softness, places every
// vertex at rest and zeroes all velocities.
func (s *SpringSimulator) Initialize(rest []mgl32.Vec3, softness []float32) error {
	if len(rest) == 0 {
		return fmt.Errorf("%w: no rest positions", ErrInvalidInput)
	}
	if len(rest) != len(softness) {
		return fmt.Errorf("%w: %d rest positions but %d softness values", ErrInvalidInput, len(rest), len(softness))
	}

	s.rest = append([]mgl32.Vec3(nil), rest...)
	s.softness = append([]float32(nil), softness...)
	s.displaced = append([]mgl32.Vec3(nil), rest...)
	s.velocity = make([]mgl32.Vec3, len(rest))
	return nil
}

// Advance integrates one timestep. uniformScale must be > 0.
func (s *SpringSimulator) Advance(dt, uniformScale float32) {
	stiffness := s.params.SpringStiffness * dt
	damping := 1 - s.params.DampingCoefficient*dt
	step := dt / uniformScale

	s.forEachVertex(func(lo, hi int) {
		for i := lo; i < hi; i++ {
			displacement := s.displaced[i].Sub(s.rest[i]).Mul(uniformScale)

			vel := s.velocity[i].Sub(displacement.Mul(stiffness))
			vel = vel.Mul(damping)
			pos := s.displaced[i].Add(vel.Mul(step))

			// A vertex that blew up snaps back to rest instead of poisoning the mesh.
			if !finite(pos) || !finite(vel) {
				s.displaced[i] = s.rest[i]
				s.velocity[i] = mgl32.Vec3{}
				continue
			}

			s.velocity[i] = vel
			s.displaced[i] = pos
		}
	})
}

// ApplyImpulse pushes every vertex away from localPoint with a force that falls
// off with the inverse square of the scaled distance. Repeated calls accumulate.
func (s *SpringSimulator) ApplyImpulse(localPoint mgl32.Vec3, force, dt, uniformScale float32) {
	if force == 0 {
		return
	}

	s.forEachVertex(func(lo, hi int) {
		for i := lo; i < hi; i++ {
			offset := s.displaced[i].Sub(localPoint).Mul(uniformScale)
			// float64 so tiny offsets don't underflow to the zero vector.
			x, y, z := float64(offset[0]), float64(offset[1]), float64(offset[2])
			lenSq := x*x + y*y + z*z
			if lenSq == 0 {
				continue
			}

			attenuated := float32(float64(force) / (1 + lenSq))
			inv := 1 / math.Sqrt(lenSq)
			dir := mgl32.Vec3{float32(x * inv), float32(y * inv), float32(z * inv)}
			s.velocity[i] = s.velocity[i].Add(dir.Mul(attenuated * dt))
		}
	})
}

// CurrentPositions exposes the displaced positions without copying.
// Callers must treat the slice as read-only and must not keep it across steps.
func (s *SpringSimulator) CurrentPositions() []mgl32.Vec3 { return s.displaced }

// RestPositions, Velocities and Softness return copies.
func (s *SpringSimulator) RestPositions() []mgl32.Vec3 { return slices.Clone(s.rest) }
func (s *SpringSimulator) Velocities() []mgl32.Vec3    { return slices.Clone(s.velocity) }
func (s *SpringSimulator) Softness() []float32         { return slices.Clone(s.softness) }
func (s *SpringSimulator) Len() int                    { return len(s.rest) }
func (s *SpringSimulator) Params() SimulationParameters {
	return s.params
}

// Reset returns every vertex to rest with zero velocity.
func (s *SpringSimulator) Reset() {
	copy(s.displaced, s.rest)
	clear(s.velocity)
}

// KineticEnergy is the sum of 0.5*|v|^2 over all vertices, with unit vertex mass.
func (s *SpringSimulator) KineticEnergy() float32 {
	var e float32
	for _, v := range s.velocity {
		e += 0.5 * v.Dot(v)
	}
	return e
}

// forEachVertex splits [0, N) into contiguous chunks. Chunks never overlap, so
// workers touch disjoint elements of the per-vertex slices.
func (s *SpringSimulator) forEachVertex(fn func(lo, hi int)) {
	n := len(s.rest)
	workers := s.params.Workers
	if workers <= 1 || n < s.params.ParallelThreshold {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	g.Wait()
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
