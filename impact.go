package deform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ImpactEvent is what the collision collaborator reports: a world-space contact
// point on the deformable surface and the mass of the actor that hit it.
type ImpactEvent struct {
	ContactPoint mgl32.Vec3
	ActorMass    float32
}

// Impact is a resolved event, ready for SpringSimulator.ApplyImpulse.
type Impact struct {
	LocalPoint mgl32.Vec3
	Force      float32
	Vertex     int
}

// FindNearestVertex returns the index of the position closest to query.
// On ties the lowest index wins.
func FindNearestVertex(positions []mgl32.Vec3, query mgl32.Vec3) (int, error) {
	if len(positions) == 0 {
		return -1, ErrNoVertices
	}

	closest := 0
	closestDist := positions[0].Sub(query).Len()
	for i := 1; i < len(positions); i++ {
		if d := positions[i].Sub(query).Len(); d < closestDist {
			closestDist = d
			closest = i
		}
	}
	return closest, nil
}

// ImpactResolver turns contact points into impulse parameters using the rest
// pose and softness of one mesh. It keeps no state between calls.
type ImpactResolver struct {
	rest      []mgl32.Vec3
	softness  []float32
	transform *Transform
}

func NewImpactResolver(rest []mgl32.Vec3, softness []float32, transform *Transform) *ImpactResolver {
	if transform == nil {
		transform = NewTransform()
	}
	return &ImpactResolver{rest: rest, softness: softness, transform: transform}
}

// ResolveImpact moves contactPoint into the object's local frame, finds the
// nearest rest vertex there and scales the force by that vertex's softness.
func (r *ImpactResolver) ResolveImpact(contactPoint mgl32.Vec3, actorMass, forceMultiplier float32) (Impact, error) {
	local := r.transform.InverseTransformPoint(contactPoint)

	idx, err := FindNearestVertex(r.rest, local)
	if err != nil {
		return Impact{}, err
	}
	if idx >= len(r.softness) {
		return Impact{}, fmt.Errorf("%w: vertex %d has no softness value", ErrInvalidInput, idx)
	}

	return Impact{
		LocalPoint: local,
		Force:      actorMass * r.softness[idx] * forceMultiplier,
		Vertex:     idx,
	}, nil
}
