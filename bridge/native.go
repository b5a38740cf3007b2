package bridge

import (
	"context"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// Native runs a processor.Instance in the host process. Its memory is the
// instance arena addressed in bytes, so hosts drive it exactly like a
// wazero-hosted core.
type Native struct {
	inst   *processor.Instance
	mem    ArenaMemory
	layout Layout
}

var _ Core = (*Native)(nil)

// NewNative wraps inst.
func NewNative(inst *processor.Instance) *Native {
	in, out := len(inst.Inputs()), len(inst.Outputs())
	return &Native{
		inst: inst,
		mem:  ArenaMemory(inst.Arena()),
		layout: Layout{
			Inputs:     Region{Offset: uint32(inst.InputsOffset()) * SampleSize, Len: uint32(in)},
			Outputs:    Region{Offset: uint32(inst.OutputsOffset()) * SampleSize, Len: uint32(out)},
			Parameters: Region{Offset: uint32(inst.ParametersOffset()) * SampleSize, Len: uint32(len(inst.Parameters()))},
		},
	}
}

// Instance returns the wrapped instance.
func (n *Native) Instance() *processor.Instance { return n.inst }

func (n *Native) Layout() Layout { return n.layout }

func (n *Native) Memory() pureaudio.Memory { return n.mem }

// Advance runs one block cycle. The context is unused; native cores never
// suspend.
func (n *Native) Advance(context.Context) error {
	return n.inst.Advance()
}

func (n *Native) NoteOn(key, velocity uint8) bool { return n.inst.NoteOn(key, velocity) }

func (n *Native) NoteOff(key, velocity uint8) bool { return n.inst.NoteOff(key, velocity) }

// Close releases nothing; the arena is reclaimed with the instance.
func (n *Native) Close(context.Context) error { return nil }

// ArenaMemory views a float32 arena as byte-addressed memory.
type ArenaMemory []float32

var (
	_ pureaudio.Memory      = ArenaMemory(nil)
	_ pureaudio.MemorySizer = ArenaMemory(nil)
)

func (m ArenaMemory) Size() uint32 { return uint32(len(m)) * SampleSize }

func (m ArenaMemory) span(offset, count uint32) ([]float32, error) {
	if offset%SampleSize != 0 {
		return nil, errors.New(errors.PhaseProcess, errors.KindInvalidInput).
			Path("memory").
			Value(offset).
			Detail("offset %d is not %d-byte aligned", offset, SampleSize).
			Build()
	}
	start := uint64(offset / SampleSize)
	if start+uint64(count) > uint64(len(m)) {
		return nil, errors.OutOfBounds(errors.PhaseProcess, []string{"memory"}, offset, count*SampleSize, m.Size())
	}
	return m[start : start+uint64(count)], nil
}

// ReadFloat32s copies len(dst) samples starting at offset into dst.
func (m ArenaMemory) ReadFloat32s(offset uint32, dst []float32) error {
	s, err := m.span(offset, uint32(len(dst)))
	if err != nil {
		return err
	}
	copy(dst, s)
	return nil
}

// WriteFloat32s copies src into memory starting at offset.
func (m ArenaMemory) WriteFloat32s(offset uint32, src []float32) error {
	s, err := m.span(offset, uint32(len(src)))
	if err != nil {
		return err
	}
	copy(s, src)
	return nil
}

// ZeroFloat32s silences count samples starting at offset.
func (m ArenaMemory) ZeroFloat32s(offset uint32, count uint32) error {
	s, err := m.span(offset, count)
	if err != nil {
		return err
	}
	clear(s)
	return nil
}

// NativeSource adapts a kind so loaders can build native cores from it.
func NativeSource(kind *processor.Kind) Source {
	return nativeSource{kind}
}

type nativeSource struct {
	*processor.Kind
}

func (s nativeSource) NewCore(_ context.Context, sampleRate float32) (Core, error) {
	inst, err := s.Instantiate(sampleRate)
	if err != nil {
		return nil, err
	}
	return NewNative(inst), nil
}
