package processor

import (
	"fmt"

	"github.com/TheCrustyCrab/pure-audio/buffer"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/param"
)

// Capability distinguishes the two shapes of the per-block contract.
type Capability uint8

const (
	// Effect kinds read audio inputs and receive no events.
	Effect Capability = iota + 1
	// Instrument kinds have no inputs and are driven by note events.
	Instrument
)

func (c Capability) String() string {
	switch c {
	case Effect:
		return "effect"
	case Instrument:
		return "instrument"
	default:
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
}

// Shape is the static geometry of a processor kind.
type Shape struct {
	Inputs    int
	Outputs   int
	Channels  int
	BlockSize int
}

// InputShape returns the buffer shape of the input region.
func (s Shape) InputShape() buffer.Shape {
	return buffer.Shape{Slots: s.Inputs, Channels: s.Channels, Samples: s.BlockSize}
}

// OutputShape returns the buffer shape of the output region.
func (s Shape) OutputShape() buffer.Shape {
	return buffer.Shape{Slots: s.Outputs, Channels: s.Channels, Samples: s.BlockSize}
}

// Validate rejects shapes that cannot be instantiated.
func (s Shape) Validate() error {
	if s.Outputs <= 0 {
		return errors.InvalidShape([]string{"outputs"}, fmt.Sprintf("output count must be positive, got %d", s.Outputs))
	}
	if err := s.InputShape().Validate(); err != nil {
		return err
	}
	return s.OutputShape().Validate()
}

// EffectFunc is an effect algorithm. It reads inputs and params, writes only
// out and *state, and must not allocate, block or loop unboundedly.
type EffectFunc[S any] func(in buffer.Inputs, out buffer.Outputs, params param.Values, state *S, sampleRate float32)

// InstrumentFunc is an instrument algorithm. events holds this block's note
// messages in arrival order and is only valid during the call.
type InstrumentFunc[S any] func(events []event.Event, out buffer.Outputs, params param.Values, state *S, sampleRate float32)

// Initializer is implemented by state types that need setup once the sample
// rate is known. Init runs at instance construction, outside the block cycle.
type Initializer interface {
	Init(sampleRate float32)
}

type algorithm func(in buffer.Inputs, events []event.Event, out buffer.Outputs, params param.Values)

// Kind is a registered-ready processor declaration: its capability, shape and
// parameter schema are fixed for its lifetime.
type Kind struct {
	newAlgorithm  func(sampleRate float32) algorithm
	name          string
	schema        param.Schema
	shape         Shape
	queueCapacity int
	capability    Capability
}

// Option customizes a Kind.
type Option func(*Kind)

// WithQueueCapacity sets how many note events an instance buffers between
// blocks.
func WithQueueCapacity(n int) Option {
	return func(k *Kind) {
		k.queueCapacity = n
	}
}

// NewEffect declares an effect kind.
func NewEffect[S any](name string, shape Shape, schema param.Schema, fn EffectFunc[S], opts ...Option) (*Kind, error) {
	if shape.Inputs == 0 {
		return nil, errors.Capability(name, "effect declares no input slots")
	}
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseConfigure, "nil effect function")
	}
	k, err := newKind(name, Effect, shape, schema, opts)
	if err != nil {
		return nil, err
	}
	k.newAlgorithm = func(sampleRate float32) algorithm {
		state := newState[S](sampleRate)
		return func(in buffer.Inputs, _ []event.Event, out buffer.Outputs, params param.Values) {
			fn(in, out, params, state, sampleRate)
		}
	}
	return k, nil
}

// NewInstrument declares an instrument kind.
func NewInstrument[S any](name string, shape Shape, schema param.Schema, fn InstrumentFunc[S], opts ...Option) (*Kind, error) {
	if shape.Inputs != 0 {
		return nil, errors.Capability(name, fmt.Sprintf("instrument declares %d input slots", shape.Inputs))
	}
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseConfigure, "nil instrument function")
	}
	k, err := newKind(name, Instrument, shape, schema, opts)
	if err != nil {
		return nil, err
	}
	k.newAlgorithm = func(sampleRate float32) algorithm {
		state := newState[S](sampleRate)
		return func(_ buffer.Inputs, events []event.Event, out buffer.Outputs, params param.Values) {
			fn(events, out, params, state, sampleRate)
		}
	}
	return k, nil
}

func newKind(name string, c Capability, shape Shape, schema param.Schema, opts []Option) (*Kind, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseConfigure, "processor kind name is empty")
	}
	if err := shape.Validate(); err != nil {
		return nil, annotate(err, name)
	}
	if err := schema.Validate(); err != nil {
		return nil, annotate(err, name)
	}
	k := &Kind{
		name:          name,
		capability:    c,
		shape:         shape,
		schema:        schema.Clone(),
		queueCapacity: event.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(k)
	}
	for _, d := range k.schema {
		if d.Rate == param.ARate {
			Logger().Sugar().Warnf("processor %s: parameter %q is a-rate; it is sampled once per block", name, d.Name)
		}
	}
	return k, nil
}

func newState[S any](sampleRate float32) *S {
	state := new(S)
	if in, ok := any(state).(Initializer); ok {
		in.Init(sampleRate)
	}
	return state
}

func annotate(err error, name string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Processor = name
	}
	return err
}

// Name returns the kind name the host registers glue under.
func (k *Kind) Name() string { return k.name }

// Capability reports whether the kind is an effect or an instrument.
func (k *Kind) Capability() Capability { return k.capability }

// Shape returns the static geometry.
func (k *Kind) Shape() Shape { return k.shape }

// Schema returns a copy of the parameter schema.
func (k *Kind) Schema() param.Schema { return k.schema.Clone() }
