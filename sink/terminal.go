package sink

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// Height ramp from deepest dent to highest bulge.
var shades = []rune{'@', '#', '%', '*', '+', '=', '-', ':', '.', ' '}

// Terminal draws the vertical displacement of each vertex as a character
// heightmap. Vertices map onto the screen by their rest X/Z, so the view
// stays put while the surface moves.
type Terminal struct {
	screen tcell.Screen
	rest   []mgl32.Vec3
	// Displacement mapped to the ends of the ramp.
	Range float32

	minX, maxX, minZ, maxZ float32
}

func NewTerminal(screen tcell.Screen, rest []mgl32.Vec3) *Terminal {
	t := &Terminal{screen: screen, rest: rest, Range: 0.25}
	if len(rest) == 0 {
		return t
	}
	t.minX, t.maxX = rest[0].X(), rest[0].X()
	t.minZ, t.maxZ = rest[0].Z(), rest[0].Z()
	for _, p := range rest[1:] {
		t.minX, t.maxX = min(t.minX, p.X()), max(t.maxX, p.X())
		t.minZ, t.maxZ = min(t.minZ, p.Z()), max(t.maxZ, p.Z())
	}
	return t
}

// Cell returns the screen cell for vertex i. Row 0 is kept for the status line.
func (t *Terminal) Cell(i int) (int, int) {
	w, h := t.screen.Size()
	p := t.rest[i]
	x := int(float32(w-1)*span(p.X(), t.minX, t.maxX) + 0.5)
	y := 1 + int(float32(h-2)*span(p.Z(), t.minZ, t.maxZ)+0.5)
	return x, y
}

// Shade picks the glyph for a vertical displacement dy.
func (t *Terminal) Shade(dy float32) rune {
	r := t.Range
	if r <= 0 {
		r = 1
	}
	f := (mgl32.Clamp(dy, -r, r) + r) / (2 * r)
	idx := int(math.Round(float64(f) * float64(len(shades)-1)))
	return shades[idx]
}

func (t *Terminal) WriteFrame(frame int, positions []mgl32.Vec3) error {
	if len(positions) != len(t.rest) {
		return fmt.Errorf("terminal sink: got %d positions for %d vertices", len(positions), len(t.rest))
	}

	t.screen.Clear()
	style := tcell.StyleDefault
	var peak float32
	for i, p := range positions {
		dy := p.Y() - t.rest[i].Y()
		peak = max(peak, float32(math.Abs(float64(dy))))
		x, y := t.Cell(i)
		t.screen.SetContent(x, y, t.Shade(dy), nil, style.Foreground(heat(dy, t.Range)))
	}

	status := fmt.Sprintf("frame %d  peak %.4f", frame, peak)
	for i, r := range status {
		t.screen.SetContent(i, 0, r, nil, style.Bold(true))
	}
	t.screen.Show()
	return nil
}

func heat(dy, r float32) tcell.Color {
	if r <= 0 {
		r = 1
	}
	f := mgl32.Clamp(dy/r, -1, 1)
	if f < 0 {
		return tcell.NewRGBColor(int32(-f*255), 64, 64)
	}
	return tcell.NewRGBColor(64, int32(f*255), 64)
}

func span(v, lo, hi float32) float32 {
	if hi-lo < 1e-6 {
		return 0
	}
	return (v - lo) / (hi - lo)
}
