package deform

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places a deformable object in the world.
// Scale is assumed uniform: only Scale.X() feeds the spring dynamics.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t *Transform) UniformScale() float32 {
	return t.Scale.X()
}

// Invertible reports whether every scale component is positive. Without it
// InverseTransformPoint divides by zero.
func (t *Transform) Invertible() bool {
	return t.Scale.X() > 0 && t.Scale.Y() > 0 && t.Scale.Z() > 0
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t *Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

func (t *Transform) TransformPoint(local mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{local.X() * t.Scale.X(), local.Y() * t.Scale.Y(), local.Z() * t.Scale.Z()}
	return t.Position.Add(t.Rotation.Rotate(scaled))
}

// InverseTransformPoint maps a world-space point into the object's local frame.
func (t *Transform) InverseTransformPoint(world mgl32.Vec3) mgl32.Vec3 {
	loc := t.Rotation.Conjugate().Rotate(world.Sub(t.Position))
	return mgl32.Vec3{loc.X() / t.Scale.X(), loc.Y() / t.Scale.Y(), loc.Z() / t.Scale.Z()}
}
