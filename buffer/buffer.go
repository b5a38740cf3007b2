// Package buffer provides fixed-shape views over audio sample storage.
//
// A Block is a flat []float32 laid out slot-major, then channel-major, then
// sample-major. Views never copy and never allocate; indexing outside the
// declared shape panics.
package buffer

import (
	"fmt"

	"github.com/TheCrustyCrab/pure-audio/errors"
)

// Shape is the fixed geometry of one block of audio.
type Shape struct {
	Slots    int
	Channels int
	Samples  int
}

// Len returns the number of samples a block of this shape holds.
func (s Shape) Len() int {
	return s.Slots * s.Channels * s.Samples
}

// Validate reports a configuration error for shapes that can never hold audio.
// Zero slots is valid.
func (s Shape) Validate() error {
	switch {
	case s.Slots < 0:
		return errors.InvalidShape([]string{"slots"}, fmt.Sprintf("negative slot count %d", s.Slots))
	case s.Channels <= 0:
		return errors.InvalidShape([]string{"channels"}, fmt.Sprintf("channel count must be positive, got %d", s.Channels))
	case s.Samples <= 0:
		return errors.InvalidShape([]string{"samples"}, fmt.Sprintf("sample count must be positive, got %d", s.Samples))
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%d×%d×%d", s.Slots, s.Channels, s.Samples)
}

// Block is a shaped view over caller-owned storage.
type Block struct {
	data  []float32
	shape Shape
}

// NewBlock wraps storage without copying. It fails when storage does not
// hold exactly shape.Len() samples.
func NewBlock(shape Shape, storage []float32) (Block, error) {
	if err := shape.Validate(); err != nil {
		return Block{}, err
	}
	if len(storage) != shape.Len() {
		return Block{}, errors.ShapeMismatch(errors.PhaseConfigure, []string{"storage"}, shape.Len(), len(storage))
	}
	return Block{data: storage[:len(storage):len(storage)], shape: shape}, nil
}

// Shape returns the block geometry.
func (b Block) Shape() Shape { return b.shape }

// Data returns the flat backing storage.
func (b Block) Data() []float32 { return b.data }

func (b Block) channel(slot, ch int) []float32 {
	if slot < 0 || slot >= b.shape.Slots || ch < 0 || ch >= b.shape.Channels {
		panic(fmt.Sprintf("buffer: channel (%d, %d) outside shape %s", slot, ch, b.shape))
	}
	start := (slot*b.shape.Channels + ch) * b.shape.Samples
	end := start + b.shape.Samples
	return b.data[start:end:end]
}

// Inputs is a read-only view handed to algorithms. Slices returned by
// Channel alias the core's input region and must not be written.
type Inputs struct {
	block Block
}

// NewInputs wraps an input block.
func NewInputs(b Block) Inputs { return Inputs{block: b} }

// Data returns the flat input samples.
func (in Inputs) Data() []float32 { return in.block.data }

func (in Inputs) Slots() int    { return in.block.shape.Slots }
func (in Inputs) Channels() int { return in.block.shape.Channels }
func (in Inputs) Samples() int  { return in.block.shape.Samples }

// Channel returns the samples of one input channel.
func (in Inputs) Channel(slot, ch int) []float32 {
	return in.block.channel(slot, ch)
}

// At returns a single input sample.
func (in Inputs) At(slot, ch, i int) float32 {
	return in.block.channel(slot, ch)[i]
}

// Outputs is the mutable view algorithms write into.
type Outputs struct {
	block Block
}

// NewOutputs wraps an output block.
func NewOutputs(b Block) Outputs { return Outputs{block: b} }

// Data returns the flat output samples.
func (out Outputs) Data() []float32 { return out.block.data }

func (out Outputs) Slots() int    { return out.block.shape.Slots }
func (out Outputs) Channels() int { return out.block.shape.Channels }
func (out Outputs) Samples() int  { return out.block.shape.Samples }

// Channel returns the writable samples of one output channel.
func (out Outputs) Channel(slot, ch int) []float32 {
	return out.block.channel(slot, ch)
}

// At returns a single output sample.
func (out Outputs) At(slot, ch, i int) float32 {
	return out.block.channel(slot, ch)[i]
}

// Set overwrites a single output sample.
func (out Outputs) Set(slot, ch, i int, v float32) {
	out.block.channel(slot, ch)[i] = v
}

// Add mixes v into a single output sample.
func (out Outputs) Add(slot, ch, i int, v float32) {
	out.block.channel(slot, ch)[i] += v
}

// Zero silences every output sample.
func (out Outputs) Zero() {
	clear(out.block.data)
}
