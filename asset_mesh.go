package deform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is the deformable geometry as handed over by the host: vertex
// positions in object space and optional per-vertex RGBA colors. The red
// channel encodes stiffness, so softness is 1 - red.
type MeshData struct {
	Positions []mgl32.Vec3
	Colors    []mgl32.Vec4
}

// Validate accepts a mesh with at least one vertex and either no colors or
// exactly one color per vertex.
func (m MeshData) Validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: mesh has no vertices", ErrInvalidInput)
	}
	if len(m.Colors) != 0 && len(m.Colors) != len(m.Positions) {
		return fmt.Errorf("%w: mesh has %d vertices but %d colors", ErrInvalidInput, len(m.Positions), len(m.Colors))
	}
	return nil
}

// Softness derives the per-vertex softness. Meshes without colors are fully soft.
func (m MeshData) Softness() []float32 {
	out := make([]float32, len(m.Positions))
	for i := range out {
		if len(m.Colors) == 0 {
			out[i] = 1
			continue
		}
		out[i] = mgl32.Clamp(1-m.Colors[i].X(), 0, 1)
	}
	return out
}

// NewGridMesh builds a flat cols x rows quad grid of side size on the XZ
// plane, centered on the origin, with (cols+1)*(rows+1) vertices in row-major
// order. All colors are black, so every vertex starts fully soft.
func NewGridMesh(cols, rows int, size float32) MeshData {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	n := (cols + 1) * (rows + 1)
	mesh := MeshData{
		Positions: make([]mgl32.Vec3, 0, n),
		Colors:    make([]mgl32.Vec4, 0, n),
	}

	half := size / 2
	for r := 0; r <= rows; r++ {
		z := -half + size*float32(r)/float32(rows)
		for c := 0; c <= cols; c++ {
			x := -half + size*float32(c)/float32(cols)
			mesh.Positions = append(mesh.Positions, mgl32.Vec3{x, 0, z})
			mesh.Colors = append(mesh.Colors, mgl32.Vec4{0, 0, 0, 1})
		}
	}
	return mesh
}
