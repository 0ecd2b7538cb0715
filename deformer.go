package deform

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// GeometrySink receives the displaced positions once per frame, after the
// step. It owns normal recalculation and anything else render related.
type GeometrySink interface {
	WriteFrame(frame int, positions []mgl32.Vec3) error
}

// Frame-spike cap: a dt larger than this skips the step.
const maxStep = time.Second

// Deformer binds a SpringSimulator and ImpactResolver to one object's
// transform and queues impacts so they land before the next step.
type Deformer struct {
	sim       *SpringSimulator
	resolver  *ImpactResolver
	transform *Transform
	sink      GeometrySink
	logger    Logger

	pending []ImpactEvent
	frame   int
}

type DeformerOption func(*Deformer)

func WithTransform(t *Transform) DeformerOption {
	return func(d *Deformer) { d.transform = t }
}

func WithSink(sink GeometrySink) DeformerOption {
	return func(d *Deformer) { d.sink = sink }
}

func WithLogger(logger Logger) DeformerOption {
	return func(d *Deformer) { d.logger = logger }
}

func NewDeformer(mesh MeshData, params SimulationParameters, opts ...DeformerOption) (*Deformer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	d := &Deformer{
		transform: NewTransform(),
		logger:    NewNopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.sim = NewSpringSimulator(params)
	if err := d.sim.Initialize(mesh.Positions, mesh.Softness()); err != nil {
		return nil, fmt.Errorf("initialize simulator: %w", err)
	}
	d.resolver = NewImpactResolver(d.sim.rest, d.sim.softness, d.transform)
	return d, nil
}

func (d *Deformer) Simulator() *SpringSimulator { return d.sim }
func (d *Deformer) Transform() *Transform       { return d.transform }
func (d *Deformer) Resolver() *ImpactResolver   { return d.resolver }
func (d *Deformer) PendingImpacts() int         { return len(d.pending) }
func (d *Deformer) Frame() int                  { return d.frame }

// QueueImpact records a contact. It takes effect on the next Update.
func (d *Deformer) QueueImpact(ev ImpactEvent) {
	d.pending = append(d.pending, ev)
}

// Update applies every queued impact in arrival order, advances the springs by
// dt and hands the result to the sink.
func (d *Deformer) Update(dt time.Duration) error {
	if dt <= 0 || dt > maxStep {
		return nil
	}

	if !d.transform.Invertible() {
		d.logger.Warnf("deformer skipped frame %d: non-positive scale %v", d.frame, d.transform.Scale)
		return nil
	}
	scale := d.transform.UniformScale()

	step := float32(dt.Seconds())
	forceMultiplier := d.sim.Params().ForceMultiplier
	for _, ev := range d.pending {
		impact, err := d.resolver.ResolveImpact(ev.ContactPoint, ev.ActorMass, forceMultiplier)
		if err != nil {
			d.logger.Errorf("dropping impact at %v: %v", ev.ContactPoint, err)
			continue
		}
		d.sim.ApplyImpulse(impact.LocalPoint, impact.Force, step, scale)
		d.logger.Debugf("impact at vertex %d, force %.3f", impact.Vertex, impact.Force)
	}
	d.pending = d.pending[:0]

	d.sim.Advance(step, scale)
	d.frame++

	if d.sink != nil {
		if err := d.sink.WriteFrame(d.frame, d.sim.CurrentPositions()); err != nil {
			return fmt.Errorf("write frame %d: %w", d.frame, err)
		}
	}
	return nil
}
