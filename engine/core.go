package engine

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/event"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// WasmCore is one instance of a compute module driven through the shared
// memory protocol.
//
// Note events from the control context are buffered host side and forwarded
// to the guest at the start of Advance, on the render context, so the guest
// is never entered concurrently.
type WasmCore struct {
	terminated error
	mod        api.Module
	mem        *Memory
	process    api.Function
	noteOn     api.Function
	noteOff    api.Function
	queue      *event.Queue
	scratch    []event.Event
	stack      []uint64
	name       string
	layout     bridge.Layout
	blocks     uint64
}

var _ bridge.Core = (*WasmCore)(nil)

// Instantiate creates a fresh guest instance with its own linear memory,
// calls init with the sample rate when exported and checks the regions the
// guest reports against the declared shape.
func (m *CoreModule) Instantiate(ctx context.Context, sampleRate float32) (*WasmCore, error) {
	if m.engine.closed.Load() {
		return nil, errors.NotInitialized(errors.PhaseCreate, "wazero engine")
	}
	if !(sampleRate > 0) || math.IsInf(float64(sampleRate), 0) {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Processor(m.name).
			Value(sampleRate).
			Detail("sample rate must be positive and finite, got %v", sampleRate).
			Build()
	}

	// Anonymous so the runtime accepts any number of instances.
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")
	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(m.name, err)
	}

	c, err := m.bind(ctx, mod, sampleRate)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	Logger().Debug("compute core instantiated",
		zap.String("kind", m.name),
		zap.Float32("sample_rate", sampleRate),
		zap.Uint32("memory_bytes", c.mem.Size()))
	return c, nil
}

func (m *CoreModule) bind(ctx context.Context, mod api.Module, sampleRate float32) (*WasmCore, error) {
	mem := WrapMemory(mod.ExportedMemory(MemoryExport))
	if mem == nil {
		return nil, errors.MissingExport(MemoryExport)
	}

	// init runs first so a module may allocate its regions for the rate.
	if m.hasInit {
		if _, err := mod.ExportedFunction(exportInit).Call(ctx, api.EncodeF32(sampleRate)); err != nil {
			return nil, errors.Instantiation(m.name, err)
		}
	}

	ptrs := [3]uint32{}
	for i, name := range [3]string{exportInputsPtr, exportOutputsPtr, exportParamsPtr} {
		res, err := mod.ExportedFunction(name).Call(ctx)
		if err != nil {
			return nil, errors.Instantiation(m.name, err)
		}
		ptrs[i] = api.DecodeU32(res[0])
	}

	layout := bridge.ExpectedLayout(m.shape, len(m.schema), 0)
	layout.Inputs.Offset = ptrs[0]
	layout.Outputs.Offset = ptrs[1]
	layout.Parameters.Offset = ptrs[2]
	if err := layout.Validate(mem.Size()); err != nil {
		if pe, ok := err.(*errors.Error); ok {
			pe.Processor = m.name
		}
		return nil, err
	}

	// Defaults are in place before the first block even if the host never
	// writes parameters.
	defaults := make([]float32, len(m.schema))
	m.schema.Defaults(defaults)
	if err := mem.WriteFloat32s(layout.Parameters.Offset, defaults); err != nil {
		return nil, err
	}

	c := &WasmCore{
		mod:     mod,
		mem:     mem,
		process: mod.ExportedFunction(exportProcess),
		noteOn:  mod.ExportedFunction(exportNoteOn),
		noteOff: mod.ExportedFunction(exportNoteOff),
		stack:   make([]uint64, 2),
		name:    m.name,
		layout:  layout,
	}
	if m.capability == processor.Instrument {
		c.queue = event.NewQueue(m.engine.cfg.QueueCapacity)
		c.scratch = make([]event.Event, 0, c.queue.Cap())
	}
	return c, nil
}

func (c *WasmCore) Layout() bridge.Layout { return c.layout }

func (c *WasmCore) Memory() pureaudio.Memory { return c.mem }

// Blocks returns how many block cycles completed successfully.
func (c *WasmCore) Blocks() uint64 { return c.blocks }

// Terminated returns the error that stopped processing, if any.
func (c *WasmCore) Terminated() error { return c.terminated }

// NoteOn queues a note-on for the next block. Effects drop note events.
func (c *WasmCore) NoteOn(key, velocity uint8) bool {
	if c.queue == nil {
		return false
	}
	return c.queue.Push(event.NoteOn(key, velocity))
}

// NoteOff queues a note-off for the next block.
func (c *WasmCore) NoteOff(key, velocity uint8) bool {
	if c.queue == nil {
		return false
	}
	return c.queue.Push(event.NoteOff(key, velocity))
}

// Advance zeroes the output region, forwards queued events to the guest in
// arrival order and calls process once. A trap terminates the core: outputs
// stay silent and every later call returns the termination error.
func (c *WasmCore) Advance(ctx context.Context) error {
	_ = c.mem.ZeroFloat32s(c.layout.Outputs.Offset, c.layout.Outputs.Len)
	if c.terminated != nil {
		if c.queue != nil {
			c.queue.Reset()
		}
		return c.terminated
	}

	if c.queue != nil {
		events := c.queue.Snapshot(c.scratch)
		for _, e := range events {
			fn := c.noteOn
			if e.Kind == event.KindNoteOff {
				fn = c.noteOff
			}
			c.stack[0] = uint64(e.Key)
			c.stack[1] = uint64(e.Velocity)
			if err := fn.CallWithStack(ctx, c.stack); err != nil {
				c.queue.Reset()
				return c.terminate(err)
			}
		}
		c.queue.Release(len(events))
	}

	if err := c.process.CallWithStack(ctx, c.stack); err != nil {
		return c.terminate(err)
	}
	c.blocks++
	return nil
}

func (c *WasmCore) terminate(cause error) error {
	_ = c.mem.ZeroFloat32s(c.layout.Outputs.Offset, c.layout.Outputs.Len)
	c.terminated = errors.Terminated(c.name, cause)
	Logger().Error("compute core terminated",
		zap.String("kind", c.name),
		zap.Uint64("block", c.blocks),
		zap.Error(cause))
	return c.terminated
}

// Close releases the guest instance and its memory.
func (c *WasmCore) Close(ctx context.Context) error {
	return c.mod.Close(ctx)
}
