package bridge

import (
	"fmt"

	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// SampleSize is the width of one float32 sample in bytes.
const SampleSize = 4

// Region is a flat run of float32 values in a core's memory.
type Region struct {
	Offset uint32 // bytes
	Len    uint32 // samples
}

// Bytes returns the region width in bytes.
func (r Region) Bytes() uint32 { return r.Len * SampleSize }

// End returns the first byte past the region.
func (r Region) End() uint32 { return r.Offset + r.Bytes() }

func (r Region) overlaps(o Region) bool {
	if r.Len == 0 || o.Len == 0 {
		return false
	}
	return r.Offset < o.End() && o.Offset < r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// Layout locates the three shared regions of a core.
type Layout struct {
	Inputs     Region
	Outputs    Region
	Parameters Region
}

// ExpectedLayout returns region lengths for shape and params parameters with
// regions packed back to back from base.
func ExpectedLayout(shape processor.Shape, params int, base uint32) Layout {
	in := Region{Offset: base, Len: uint32(shape.InputShape().Len())}
	out := Region{Offset: in.End(), Len: uint32(shape.OutputShape().Len())}
	return Layout{
		Inputs:     in,
		Outputs:    out,
		Parameters: Region{Offset: out.End(), Len: uint32(params)},
	}
}

func (l Layout) regions() [3]struct {
	name string
	r    Region
} {
	return [3]struct {
		name string
		r    Region
	}{
		{"inputs", l.Inputs},
		{"outputs", l.Outputs},
		{"parameters", l.Parameters},
	}
}

// Validate checks that every region is aligned, fits in memSize bytes and
// does not overlap another region.
func (l Layout) Validate(memSize uint32) error {
	rs := l.regions()
	for _, e := range rs {
		if e.r.Offset%SampleSize != 0 {
			return errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Path(e.name).
				Value(e.r.Offset).
				Detail("region offset %d is not %d-byte aligned", e.r.Offset, SampleSize).
				Build()
		}
		if uint64(e.r.Offset)+uint64(e.r.Bytes()) > uint64(memSize) {
			return errors.OutOfBounds(errors.PhaseBind, []string{e.name}, e.r.Offset, e.r.Bytes(), memSize)
		}
	}
	for i := range rs {
		for j := i + 1; j < len(rs); j++ {
			if rs[i].r.overlaps(rs[j].r) {
				return errors.New(errors.PhaseBind, errors.KindOutOfBounds).
					Path(rs[i].name, rs[j].name).
					Detail("%s region %s overlaps %s region %s", rs[i].name, rs[i].r, rs[j].name, rs[j].r).
					Build()
			}
		}
	}
	return nil
}

// Matches checks that region lengths agree with the declared shape and
// parameter count.
func (l Layout) Matches(shape processor.Shape, params int) error {
	want := ExpectedLayout(shape, params, 0)
	got := l.regions()
	for i, e := range want.regions() {
		if got[i].r.Len != e.r.Len {
			return errors.ShapeMismatch(errors.PhaseBind, []string{e.name}, int(e.r.Len), int(got[i].r.Len))
		}
	}
	return nil
}
