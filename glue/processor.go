package glue

import (
	"context"

	pureaudio "github.com/TheCrustyCrab/pure-audio"
	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// Processor is installed glue bound to one core: the host render callback
// for a single node.
type Processor struct {
	glue   *Glue
	core   bridge.Core
	mem    pureaudio.Memory
	layout bridge.Layout
	flat   []float32
}

// Bind checks that core exposes regions matching the glue's shape and
// returns the render callback for it.
func (g *Glue) Bind(core bridge.Core) (*Processor, error) {
	if core == nil {
		return nil, errors.InvalidInput(errors.PhaseBind, "nil core")
	}
	layout := core.Layout()
	if err := layout.Matches(g.desc.Shape, len(g.params)); err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Processor = g.desc.Name
		}
		return nil, err
	}
	return &Processor{
		glue:   g,
		core:   core,
		mem:    core.Memory(),
		layout: layout,
		flat:   make([]float32, len(g.params)),
	}, nil
}

// Glue returns the glue this processor was bound from.
func (p *Processor) Glue() *Glue { return p.glue }

// Core returns the bound core.
func (p *Processor) Core() bridge.Core { return p.core }

// Process runs one render quantum. inputs and outputs are indexed
// [slot][channel][sample]; params maps a parameter name to its values for
// this block, of which only the first is used. Missing input slots or
// channels are treated as silence, missing parameters take their default.
//
// The block is skipped and ran is false when there is nowhere to render to,
// or, for effects, when no input is connected.
func (p *Processor) Process(ctx context.Context, inputs, outputs [][][]float32, params map[string][]float32) (ran bool, err error) {
	if p.skip(inputs, outputs) {
		return false, nil
	}

	for _, c := range p.glue.inputs {
		off := p.layout.Inputs.Offset + c.Offset
		if src := channel(inputs, c.Slot, c.Channel); src != nil {
			n := min(len(src), p.glue.desc.Shape.BlockSize)
			if err := p.mem.WriteFloat32s(off, src[:n]); err != nil {
				return false, err
			}
			if n < p.glue.desc.Shape.BlockSize {
				if err := p.mem.ZeroFloat32s(off+uint32(n)*bridge.SampleSize, uint32(p.glue.desc.Shape.BlockSize-n)); err != nil {
					return false, err
				}
			}
			continue
		}
		if err := p.mem.ZeroFloat32s(off, uint32(p.glue.desc.Shape.BlockSize)); err != nil {
			return false, err
		}
	}

	for _, pr := range p.glue.params {
		v := pr.Default
		if vs := params[pr.Name]; len(vs) > 0 {
			v = vs[0]
		}
		p.flat[pr.Index] = v
	}
	if err := p.mem.WriteFloat32s(p.layout.Parameters.Offset, p.flat); err != nil {
		return false, err
	}

	if err := p.core.Advance(ctx); err != nil {
		p.silence(outputs)
		return false, err
	}

	for _, c := range p.glue.outputs {
		dst := channel(outputs, c.Slot, c.Channel)
		if dst == nil {
			continue
		}
		n := min(len(dst), p.glue.desc.Shape.BlockSize)
		if err := p.mem.ReadFloat32s(p.layout.Outputs.Offset+c.Offset, dst[:n]); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (p *Processor) skip(inputs, outputs [][][]float32) bool {
	if len(outputs) == 0 || len(outputs[0]) == 0 {
		return true
	}
	if p.glue.desc.Capability != processor.Effect {
		return false
	}
	for _, slot := range inputs {
		if len(slot) > 0 {
			return false
		}
	}
	return true
}

func (p *Processor) silence(outputs [][][]float32) {
	for _, slot := range outputs {
		for _, ch := range slot {
			clear(ch)
		}
	}
}

func channel(buf [][][]float32, slot, ch int) []float32 {
	if slot >= len(buf) || ch >= len(buf[slot]) {
		return nil
	}
	return buf[slot][ch]
}
