package deform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestSimulator(t *testing.T, rest []mgl32.Vec3) *SpringSimulator {
	t.Helper()
	params := NewSimulationParameters()
	params.Workers = 1

	softness := make([]float32, len(rest))
	for i := range softness {
		softness[i] = 1
	}

	sim := NewSpringSimulator(params)
	require.NoError(t, sim.Initialize(rest, softness))
	return sim
}

func TestSpringSimulator_InitializeRejectsBadInput(t *testing.T) {
	sim := NewSpringSimulator(NewSimulationParameters())

	err := sim.Initialize([]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}, []float32{1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = sim.Initialize(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSpringSimulator_InitializeStartsAtRest(t *testing.T) {
	rest := []mgl32.Vec3{{0, 0, 0}, {1, 2, 3}}
	sim := newTestSimulator(t, rest)

	assert.Equal(t, 2, sim.Len())
	assert.Equal(t, rest, sim.CurrentPositions())
	assert.Equal(t, []mgl32.Vec3{{}, {}}, sim.Velocities())

	// The simulator owns copies; the caller's slice can change freely.
	rest[1] = mgl32.Vec3{9, 9, 9}
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, sim.RestPositions()[1])
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, sim.CurrentPositions()[1])
}

func TestSpringSimulator_AccessorsReturnCopies(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})

	sim.RestPositions()[0] = mgl32.Vec3{5, 0, 0}
	sim.Velocities()[0] = mgl32.Vec3{1, 0, 0}
	sim.Softness()[0] = 0

	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}, sim.RestPositions())
	assert.Equal(t, []mgl32.Vec3{{}, {}}, sim.Velocities())
	assert.Equal(t, []float32{1, 1}, sim.Softness())

	// Nothing leaked into the integration either.
	sim.Advance(0.016, 1)
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}, sim.CurrentPositions())
}

func TestSpringSimulator_RestIsFixedPoint(t *testing.T) {
	rest := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {-3, 2, 0.5}}
	sim := newTestSimulator(t, rest)

	for i := 0; i < 100; i++ {
		sim.Advance(0.016, 1)
	}

	assert.Equal(t, rest, sim.CurrentPositions())
	assert.Equal(t, []mgl32.Vec3{{}, {}, {}}, sim.Velocities())
}

func TestSpringSimulator_DisplacedVertexRelaxes(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}})
	sim.displaced[0] = mgl32.Vec3{0, 0.5, 0}

	const dt = float32(0.016)
	k := sim.Params().SpringStiffness
	energy := func() float32 {
		d := sim.displaced[0].Sub(sim.rest[0])
		v := sim.velocity[0]
		return 0.5*v.Dot(v) + 0.5*k*d.Dot(d)
	}

	prev := energy()
	// Sample once per simulated second.
	for second := 0; second < 5; second++ {
		for i := 0; i < 62; i++ {
			sim.Advance(dt, 1)
		}
		e := energy()
		assert.Less(t, e, prev, "energy should drop during second %d", second+1)
		prev = e
	}

	for i := 0; i < 310; i++ {
		sim.Advance(dt, 1)
	}
	assert.Less(t, sim.CurrentPositions()[0].Len(), float32(1e-3))
}

func TestSpringSimulator_AdvanceScalesDisplacement(t *testing.T) {
	// A scaled-up object sees a larger displacement but moves less per unit of velocity.
	a := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}})
	b := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}})
	a.displaced[0] = mgl32.Vec3{1, 0, 0}
	b.displaced[0] = mgl32.Vec3{1, 0, 0}

	a.Advance(0.01, 1)
	b.Advance(0.01, 2)

	// v = -d*s*k*dt*(1-c*dt)
	assert.InDelta(t, -1*1*20*0.01*0.95, a.Velocities()[0].X(), 1e-6)
	assert.InDelta(t, -1*2*20*0.01*0.95, b.Velocities()[0].X(), 1e-6)
	assert.InDelta(t, 1+a.Velocities()[0].X()*0.01, a.CurrentPositions()[0].X(), 1e-6)
	assert.InDelta(t, 1+b.Velocities()[0].X()*0.005, b.CurrentPositions()[0].X(), 1e-6)
}

func TestSpringSimulator_NonFiniteVertexSnapsToRest(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{1, 1, 1}, {2, 2, 2}})
	nan := float32(math.NaN())
	sim.displaced[0] = mgl32.Vec3{nan, 0, 0}
	sim.displaced[1] = mgl32.Vec3{2, 2.1, 2}

	sim.Advance(0.016, 1)

	assert.Equal(t, mgl32.Vec3{1, 1, 1}, sim.CurrentPositions()[0])
	assert.Equal(t, mgl32.Vec3{}, sim.Velocities()[0])
	assert.NotEqual(t, mgl32.Vec3{}, sim.Velocities()[1], "healthy vertices keep integrating")
}

func TestSpringSimulator_ZeroForceImpulse(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})
	sim.velocity[1] = mgl32.Vec3{0, 1, 0}

	sim.ApplyImpulse(mgl32.Vec3{0.5, 0, 0}, 0, 0.016, 1)

	assert.Equal(t, []mgl32.Vec3{{}, {0, 1, 0}}, sim.Velocities())
}

func TestSpringSimulator_ImpulseAtVertexIsDegenerate(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})

	assert.NotPanics(t, func() {
		sim.ApplyImpulse(mgl32.Vec3{0, 0, 0}, 50, 0.016, 1)
	})

	assert.Equal(t, mgl32.Vec3{}, sim.Velocities()[0])
	assert.Greater(t, sim.Velocities()[1].X(), float32(0))
}

func TestSpringSimulator_ImpulseAtTinyOffset(t *testing.T) {
	// 1e-25 squared underflows float32 but is still a direction.
	sim := newTestSimulator(t, []mgl32.Vec3{{1e-25, 0, 0}})

	sim.ApplyImpulse(mgl32.Vec3{0, 0, 0}, 10, 1, 1)

	v := sim.Velocities()[0]
	assert.InDelta(t, 10, v.X(), 1e-5)
	assert.Equal(t, float32(0), v.Y())
	assert.Equal(t, float32(0), v.Z())
}

func TestSpringSimulator_ImpulseFalloff(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{1, 0, 0}, {0, 0, -1}})

	sim.ApplyImpulse(mgl32.Vec3{0, 0, 0}, 10, 1, 1)
	// 10 / (1 + 1^2)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, sim.Velocities()[0])
	assert.Equal(t, mgl32.Vec3{0, 0, -5}, sim.Velocities()[1])

	sim.velocity[0] = mgl32.Vec3{}
	sim.ApplyImpulse(mgl32.Vec3{0, 0, 0}, 10, 1, 2)
	// 10 / (1 + 2^2)
	assert.InDelta(t, 2, sim.Velocities()[0].X(), 1e-6)
}

func TestSpringSimulator_ImpulsesAccumulate(t *testing.T) {
	once := newTestSimulator(t, []mgl32.Vec3{{1, 0, 0}, {0, 2, 0}})
	twice := newTestSimulator(t, []mgl32.Vec3{{1, 0, 0}, {0, 2, 0}})

	once.ApplyImpulse(mgl32.Vec3{}, 20, 0.016, 1)
	twice.ApplyImpulse(mgl32.Vec3{}, 10, 0.016, 1)
	twice.ApplyImpulse(mgl32.Vec3{}, 10, 0.016, 1)

	for i := range once.Velocities() {
		assert.InDelta(t, once.Velocities()[i].Len(), twice.Velocities()[i].Len(), 1e-6)
	}
}

func TestSpringSimulator_ParallelMatchesSerial(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mesh := NewGridMesh(99, 99, 4)

	serialParams := NewSimulationParameters()
	serialParams.Workers = 1
	parallelParams := NewSimulationParameters()
	parallelParams.Workers = 4
	parallelParams.ParallelThreshold = 1

	serial := NewSpringSimulator(serialParams)
	parallel := NewSpringSimulator(parallelParams)
	require.NoError(t, serial.Initialize(mesh.Positions, mesh.Softness()))
	require.NoError(t, parallel.Initialize(mesh.Positions, mesh.Softness()))

	for step := 0; step < 20; step++ {
		if step%5 == 0 {
			p := mgl32.Vec3{0.3, 0.1, -0.2}
			serial.ApplyImpulse(p, 50, 0.016, 1.5)
			parallel.ApplyImpulse(p, 50, 0.016, 1.5)
		}
		serial.Advance(0.016, 1.5)
		parallel.Advance(0.016, 1.5)
	}

	assert.Equal(t, serial.CurrentPositions(), parallel.CurrentPositions())
	assert.Equal(t, serial.Velocities(), parallel.Velocities())
}

func TestSpringSimulator_ResetAndEnergy(t *testing.T) {
	sim := newTestSimulator(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}})
	sim.ApplyImpulse(mgl32.Vec3{0.5, 0, 0}, 50, 0.016, 1)
	sim.Advance(0.016, 1)
	require.Greater(t, sim.KineticEnergy(), float32(0))

	sim.Reset()

	assert.Equal(t, float32(0), sim.KineticEnergy())
	assert.Equal(t, sim.RestPositions(), sim.CurrentPositions())
}
