package processor

import (
	"math"

	"go.uber.org/zap"

	"github.com/TheCrustyCrab/pure-audio/buffer"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/param"
)

// Instance is one running processor. It exclusively owns a contiguous arena
// laid out as [inputs | outputs | parameters], its event queue and its
// private state.
//
// Advance must only be called from one render context at a time. NoteOn and
// NoteOff may be called from one control context concurrently with Advance.
type Instance struct {
	terminated error
	kind       *Kind
	run        algorithm
	queue      *event.Queue
	arena      []float32
	params     []float32
	scratch    []event.Event
	values     param.Values
	inputs     buffer.Inputs
	outputs    buffer.Outputs
	blocks     uint64
	sampleRate float32
}

// Instantiate builds a fresh instance with default parameter values and
// default state. This is the only allocation point of an instance's life.
func (k *Kind) Instantiate(sampleRate float32) (*Instance, error) {
	if !(sampleRate > 0) || math.IsInf(float64(sampleRate), 0) {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Processor(k.name).
			Value(sampleRate).
			Detail("sample rate must be positive and finite, got %v", sampleRate).
			Build()
	}

	inShape, outShape := k.shape.InputShape(), k.shape.OutputShape()
	inLen, outLen := inShape.Len(), outShape.Len()
	arena := make([]float32, inLen+outLen+len(k.schema))

	inBlock, err := buffer.NewBlock(inShape, arena[:inLen])
	if err != nil {
		return nil, annotate(err, k.name)
	}
	outBlock, err := buffer.NewBlock(outShape, arena[inLen:inLen+outLen])
	if err != nil {
		return nil, annotate(err, k.name)
	}

	inst := &Instance{
		kind:       k,
		arena:      arena,
		params:     arena[inLen+outLen:],
		values:     param.NewValues(len(k.schema)),
		inputs:     buffer.NewInputs(inBlock),
		outputs:    buffer.NewOutputs(outBlock),
		sampleRate: sampleRate,
		run:        k.newAlgorithm(sampleRate),
	}
	k.schema.Defaults(inst.params)

	if k.capability == Instrument {
		inst.queue = event.NewQueue(k.queueCapacity)
		inst.scratch = make([]event.Event, 0, inst.queue.Cap())
	}
	return inst, nil
}

// Kind returns the declaration this instance was built from.
func (i *Instance) Kind() *Kind { return i.kind }

// SampleRate returns the rate fixed at construction.
func (i *Instance) SampleRate() float32 { return i.sampleRate }

// Arena returns the whole memory region shared with the host.
func (i *Instance) Arena() []float32 { return i.arena }

// InputsOffset returns the index of the first input sample in the arena.
func (i *Instance) InputsOffset() int { return 0 }

// OutputsOffset returns the index of the first output sample in the arena.
func (i *Instance) OutputsOffset() int { return len(i.inputs.Data()) }

// ParametersOffset returns the index of the first parameter in the arena.
func (i *Instance) ParametersOffset() int { return len(i.arena) - len(i.params) }

// Inputs returns the flat input region the host writes before each block.
func (i *Instance) Inputs() []float32 { return i.inputs.Data() }

// Outputs returns the flat output region the host reads after each block.
func (i *Instance) Outputs() []float32 { return i.outputs.Data() }

// Parameters returns the raw parameter region, one value per schema entry.
func (i *Instance) Parameters() []float32 { return i.params }

// Blocks returns how many block cycles completed successfully.
func (i *Instance) Blocks() uint64 { return i.blocks }

// Terminated returns the error that stopped processing, if any.
func (i *Instance) Terminated() error { return i.terminated }

// NoteOn queues a note-on for the next block. It never blocks and reports
// false when the event was dropped: the queue is full or the kind is an
// effect.
func (i *Instance) NoteOn(key, velocity uint8) bool {
	if i.queue == nil {
		return false
	}
	return i.queue.Push(event.NoteOn(key, velocity))
}

// NoteOff queues a note-off for the next block.
func (i *Instance) NoteOff(key, velocity uint8) bool {
	if i.queue == nil {
		return false
	}
	return i.queue.Push(event.NoteOff(key, velocity))
}

// PendingEvents returns how many events wait for the next block.
func (i *Instance) PendingEvents() int {
	if i.queue == nil {
		return 0
	}
	return i.queue.Len()
}

// Advance runs one block cycle: zero the outputs, decode parameters,
// deliver queued events, run the algorithm once, clear the delivered events.
// It never allocates or blocks.
//
// If the algorithm panics, outputs are silenced, the instance is terminated
// and this and every later call returns the termination error.
func (i *Instance) Advance() error {
	i.outputs.Zero()
	if i.terminated != nil {
		if i.queue != nil {
			i.queue.Reset()
		}
		return i.terminated
	}

	param.Decode(i.params, i.values)

	var events []event.Event
	if i.queue != nil {
		events = i.queue.Snapshot(i.scratch)
	}

	i.invoke(events)

	if i.queue != nil {
		i.queue.Release(len(events))
	}
	if i.terminated != nil {
		return i.terminated
	}
	i.blocks++
	return nil
}

func (i *Instance) invoke(events []event.Event) {
	defer func() {
		if r := recover(); r != nil {
			i.outputs.Zero()
			i.terminated = errors.Terminated(i.kind.name, r)
			Logger().Error("processor terminated",
				zap.String("kind", i.kind.name),
				zap.Uint64("block", i.blocks),
				zap.Any("panic", r))
		}
	}()
	i.run(i.inputs, events, i.outputs, i.values)
}
