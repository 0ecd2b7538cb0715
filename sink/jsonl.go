// Package sink holds geometry consumers for deformer output.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame is one line of JSONLines output.
type Frame struct {
	Frame     int          `json:"frame"`
	Positions []mgl32.Vec3 `json:"positions"`
}

// JSONLines writes every Every-th frame as a single JSON object per line.
type JSONLines struct {
	mu    sync.Mutex
	enc   *jsoniter.Encoder
	every int
}

func NewJSONLines(w io.Writer, every int) *JSONLines {
	if every < 1 {
		every = 1
	}
	return &JSONLines{enc: json.NewEncoder(w), every: every}
}

func (s *JSONLines) WriteFrame(frame int, positions []mgl32.Vec3) error {
	if frame%s.every != 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(Frame{Frame: frame, Positions: positions}); err != nil {
		return fmt.Errorf("encode frame %d: %w", frame, err)
	}
	return nil
}

// ReadFrames decodes JSONLines output.
func ReadFrames(r io.Reader) ([]Frame, error) {
	dec := json.NewDecoder(r)
	var frames []Frame
	for dec.More() {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			return frames, fmt.Errorf("decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
