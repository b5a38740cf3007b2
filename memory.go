package pureaudio

// DefaultBlockSize is the render quantum most hosts drive processors with.
const DefaultBlockSize = 128

// Memory is a compute core's linear memory as seen from the host.
// Offsets are in bytes; samples are little-endian 32-bit floats.
type Memory interface {
	ReadFloat32s(offset uint32, dst []float32) error
	WriteFloat32s(offset uint32, src []float32) error
	ZeroFloat32s(offset uint32, count uint32) error
}

// MemorySizer provides the current size of a compute core's memory in bytes.
type MemorySizer interface {
	Size() uint32
}
