package engine

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
)

// Memory adapts a wazero api.Memory to pureaudio.Memory. Accesses go through
// a view of the guest memory and never allocate on success.
type Memory struct {
	mem api.Memory
}

var (
	_ pureaudio.Memory      = (*Memory)(nil)
	_ pureaudio.MemorySizer = (*Memory)(nil)
)

// WrapMemory wraps mem. It returns nil for a nil memory.
func WrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 { return m.mem.Size() }

func (m *Memory) view(offset, count uint32) ([]byte, error) {
	n := count * bridge.SampleSize
	b, ok := m.mem.Read(offset, n)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseProcess, []string{"memory"}, offset, n, m.mem.Size())
	}
	return b, nil
}

// ReadFloat32s reads len(dst) little-endian floats starting at offset.
func (m *Memory) ReadFloat32s(offset uint32, dst []float32) error {
	b, err := m.view(offset, uint32(len(dst)))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*bridge.SampleSize:]))
	}
	return nil
}

// WriteFloat32s writes src as little-endian floats starting at offset.
func (m *Memory) WriteFloat32s(offset uint32, src []float32) error {
	b, err := m.view(offset, uint32(len(src)))
	if err != nil {
		return err
	}
	for i, v := range src {
		binary.LittleEndian.PutUint32(b[i*bridge.SampleSize:], math.Float32bits(v))
	}
	return nil
}

// ZeroFloat32s clears count floats starting at offset.
func (m *Memory) ZeroFloat32s(offset uint32, count uint32) error {
	b, err := m.view(offset, count)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}
