package deform

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for softness maps.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/go-gl/mathgl/mgl32"
)

// LoadSoftnessMap decodes an image file holding the mesh's vertex colors.
func LoadSoftnessMap(filename string) (image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open softness map: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode softness map %s: %w", filename, err)
	}
	return img, nil
}

// ApplyColorMap replaces the mesh colors with samples of img, stretched over
// the XZ bounds of the mesh. +X runs along the image width, +Z along its height.
func (m *MeshData) ApplyColorMap(img image.Image) {
	if len(m.Positions) == 0 {
		return
	}

	minX, maxX := m.Positions[0].X(), m.Positions[0].X()
	minZ, maxZ := m.Positions[0].Z(), m.Positions[0].Z()
	for _, p := range m.Positions[1:] {
		minX, maxX = min(minX, p.X()), max(maxX, p.X())
		minZ, maxZ = min(minZ, p.Z()), max(maxZ, p.Z())
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	colors := make([]mgl32.Vec4, len(m.Positions))
	for i, p := range m.Positions {
		u := normalizedCoord(p.X(), minX, maxX)
		v := normalizedCoord(p.Z(), minZ, maxZ)
		px := bounds.Min.X + int(u*float32(w-1)+0.5)
		py := bounds.Min.Y + int(v*float32(h-1)+0.5)

		r, g, b, a := img.At(px, py).RGBA()
		colors[i] = mgl32.Vec4{
			float32(r) / 0xffff,
			float32(g) / 0xffff,
			float32(b) / 0xffff,
			float32(a) / 0xffff,
		}
	}
	m.Colors = colors
}

// SampleSoftnessMap returns the softness img assigns to each position.
func SampleSoftnessMap(img image.Image, positions []mgl32.Vec3) []float32 {
	mesh := MeshData{Positions: positions}
	mesh.ApplyColorMap(img)
	return mesh.Softness()
}

func normalizedCoord(v, lo, hi float32) float32 {
	if hi-lo < 1e-6 {
		return 0
	}
	return (v - lo) / (hi - lo)
}
