package deform

import "errors"

var (
	// ErrInvalidInput is returned when a simulator or deformer is built from
	// empty or mismatched per-vertex data, or from invalid parameters.
	ErrInvalidInput = errors.New("deform: invalid input")

	// ErrNoVertices is returned by nearest-vertex queries on an empty vertex set.
	// Callers must not apply an impulse after receiving it.
	ErrNoVertices = errors.New("deform: no vertices")

	ErrUnknownDeformer = errors.New("deform: unknown deformer")
)
