// Package glue generates the host-side half of a processor kind.
//
// Glue is derived from a small declarative Descriptor by one fixed
// generator; no kind ships hand-written glue. A Glue holds the copy plan
// between host buffers and the core's shared regions plus a rendered
// textual form that hosts install or log.
package glue

import (
	"fmt"
	"strings"

	"github.com/TheCrustyCrab/pure-audio/bridge"
	"github.com/TheCrustyCrab/pure-audio/errors"
	"github.com/TheCrustyCrab/pure-audio/param"
	"github.com/TheCrustyCrab/pure-audio/processor"
)

// Descriptor is everything the generator needs to know about a kind.
type Descriptor struct {
	Name       string
	Capability processor.Capability
	Shape      processor.Shape
	Schema     param.Schema
}

// Describe captures the static declaration of a kind.
func Describe(d bridge.Declaration) Descriptor {
	return Descriptor{
		Name:       d.Name(),
		Capability: d.Capability(),
		Shape:      d.Shape(),
		Schema:     d.Schema(),
	}
}

// Validate checks the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "glue descriptor name is empty")
	}
	if err := d.Shape.Validate(); err != nil {
		return err
	}
	if err := d.Schema.Validate(); err != nil {
		return err
	}
	switch d.Capability {
	case processor.Effect:
		if d.Shape.Inputs == 0 {
			return errors.Capability(d.Name, "effect declares no input slots")
		}
	case processor.Instrument:
		if d.Shape.Inputs != 0 {
			return errors.Capability(d.Name, fmt.Sprintf("instrument declares %d input slots", d.Shape.Inputs))
		}
	default:
		return errors.Capability(d.Name, fmt.Sprintf("unknown capability %s", d.Capability))
	}
	return nil
}

// Copy moves one channel between a host buffer and a shared region.
// Offset is in bytes relative to the region base.
type Copy struct {
	Slot    int
	Channel int
	Offset  uint32
}

// Param writes one flattened parameter.
type Param struct {
	Name    string
	Default float32
	Index   int
}

// Glue is the generated host-side installation for one kind.
type Glue struct {
	desc    Descriptor
	inputs  []Copy
	outputs []Copy
	params  []Param
	source  string
}

// Generate builds glue for desc.
func Generate(desc Descriptor) (*Glue, error) {
	if err := desc.Validate(); err != nil {
		if e, ok := err.(*errors.Error); ok && e.Processor == "" {
			e.Processor = desc.Name
		}
		return nil, err
	}
	desc.Schema = desc.Schema.Clone()

	g := &Glue{
		desc:    desc,
		inputs:  plan(desc.Shape.Inputs, desc.Shape),
		outputs: plan(desc.Shape.Outputs, desc.Shape),
		params:  make([]Param, len(desc.Schema)),
	}
	for i, d := range desc.Schema {
		g.params[i] = Param{Name: d.Name, Default: d.Default, Index: i}
	}

	var b strings.Builder
	if err := glueTemplate.Execute(&b, g.view()); err != nil {
		return nil, errors.Registration(desc.Name, err)
	}
	g.source = b.String()
	return g, nil
}

func plan(slots int, shape processor.Shape) []Copy {
	copies := make([]Copy, 0, slots*shape.Channels)
	for s := 0; s < slots; s++ {
		for ch := 0; ch < shape.Channels; ch++ {
			copies = append(copies, Copy{
				Slot:    s,
				Channel: ch,
				Offset:  uint32((s*shape.Channels+ch)*shape.BlockSize) * bridge.SampleSize,
			})
		}
	}
	return copies
}

// Name returns the kind name the glue is installed under.
func (g *Glue) Name() string { return g.desc.Name }

// Descriptor returns the descriptor the glue was generated from.
func (g *Glue) Descriptor() Descriptor {
	d := g.desc
	d.Schema = d.Schema.Clone()
	return d
}

// Inputs returns the input copy plan.
func (g *Glue) Inputs() []Copy { return append([]Copy(nil), g.inputs...) }

// Outputs returns the output copy plan.
func (g *Glue) Outputs() []Copy { return append([]Copy(nil), g.outputs...) }

// Params returns the parameter flattening plan in schema order.
func (g *Glue) Params() []Param { return append([]Param(nil), g.params...) }

// Source returns the rendered glue.
func (g *Glue) Source() string { return g.source }
