package deform

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type DeformerId uuid.UUID

func (id DeformerId) String() string { return uuid.UUID(id).String() }

// Scene holds every deformable object of a world and updates them in the
// order they were added. QueueImpact may be called from another goroutine;
// everything else belongs to the frame loop.
type Scene struct {
	mu        sync.Mutex
	deformers map[DeformerId]*Deformer
	order     []DeformerId
}

func NewScene() *Scene {
	return &Scene{deformers: make(map[DeformerId]*Deformer)}
}

func (s *Scene) Add(d *Deformer) DeformerId {
	id := DeformerId(uuid.New())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deformers[id] = d
	s.order = append(s.order, id)
	return id
}

func (s *Scene) Get(id DeformerId) (*Deformer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deformers[id]
	return d, ok
}

func (s *Scene) Remove(id DeformerId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deformers[id]; !ok {
		return false
	}
	delete(s.deformers, id)
	s.order = slices.DeleteFunc(s.order, func(o DeformerId) bool { return o == id })
	return true
}

func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Scene) QueueImpact(id DeformerId, ev ImpactEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deformers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDeformer, id)
	}
	d.QueueImpact(ev)
	return nil
}

// Update steps every deformer and joins their errors.
func (s *Scene) Update(dt time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, id := range s.order {
		if err := s.deformers[id].Update(dt); err != nil {
			errs = append(errs, fmt.Errorf("deformer %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
