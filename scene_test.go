package deform

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScene_AddGetRemove(t *testing.T) {
	scene := NewScene()
	d, err := NewDeformer(NewGridMesh(1, 1, 1), testParams())
	require.NoError(t, err)

	id := scene.Add(d)
	assert.Equal(t, 1, scene.Len())

	got, ok := scene.Get(id)
	require.True(t, ok)
	assert.Same(t, d, got)

	assert.True(t, scene.Remove(id))
	assert.False(t, scene.Remove(id))
	assert.Equal(t, 0, scene.Len())
}

func TestScene_QueueImpactUnknown(t *testing.T) {
	scene := NewScene()

	err := scene.QueueImpact(DeformerId(uuid.New()), ImpactEvent{ActorMass: 1})
	assert.ErrorIs(t, err, ErrUnknownDeformer)
}

func TestScene_UpdateStepsAllAndJoinsErrors(t *testing.T) {
	scene := NewScene()
	good, err := NewDeformer(NewGridMesh(1, 1, 1), testParams())
	require.NoError(t, err)
	boom := errors.New("boom")
	bad, err := NewDeformer(NewGridMesh(1, 1, 1), testParams(), WithSink(&recordingSink{err: boom}))
	require.NoError(t, err)

	scene.Add(bad)
	scene.Add(good)

	err = scene.Update(16 * time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, good.Frame(), "a failing deformer must not stop the others")
}

func TestScene_ConcurrentQueueImpact(t *testing.T) {
	scene := NewScene()
	d, err := NewDeformer(NewGridMesh(2, 2, 1), testParams())
	require.NoError(t, err)
	id := scene.Add(d)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, scene.QueueImpact(id, ImpactEvent{ContactPoint: mgl32.Vec3{0.1, 0, 0}, ActorMass: 1}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 80, d.PendingImpacts())
	require.NoError(t, scene.Update(16*time.Millisecond))
	assert.Equal(t, 0, d.PendingImpacts())
}
