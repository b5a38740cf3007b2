// Package param declares processor parameters and decodes the raw values a
// host writes each block into typed, positional parameter tuples.
package param

import (
	"fmt"
	"math"

	"github.com/TheCrustyCrab/pure-audio/errors"
)

// Rate is how often the host samples a parameter.
type Rate uint8

const (
	// KRate parameters carry one value per block.
	KRate Rate = iota
	// ARate is advertised to hosts but sampled once per block like KRate.
	ARate
)

func (r Rate) String() string {
	switch r {
	case KRate:
		return "k-rate"
	case ARate:
		return "a-rate"
	default:
		return fmt.Sprintf("rate(%d)", uint8(r))
	}
}

// Descriptor declares one parameter. Min and Max are advisory metadata for
// the host's automation surface; Decode does not enforce them.
type Descriptor struct {
	Name    string
	Default float32
	Min     float32
	Max     float32
	Rate    Rate
}

// Schema is the ordered parameter list of a processor kind. It is fixed once
// the kind is registered.
type Schema []Descriptor

// Validate checks names and ranges.
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, d := range s {
		path := []string{"params", fmt.Sprint(i)}
		if d.Name == "" {
			return errors.InvalidSchema(path, "empty parameter name")
		}
		if _, dup := seen[d.Name]; dup {
			return errors.InvalidSchema(path, fmt.Sprintf("duplicate parameter name %q", d.Name))
		}
		seen[d.Name] = struct{}{}
		if isNaN(d.Min) || isNaN(d.Max) || isNaN(d.Default) {
			return errors.InvalidSchema(path, fmt.Sprintf("parameter %q has NaN bounds or default", d.Name))
		}
		if d.Min > d.Max {
			return errors.InvalidSchema(path, fmt.Sprintf("parameter %q min %v greater than max %v", d.Name, d.Min, d.Max))
		}
		if d.Rate > ARate {
			return errors.InvalidSchema(path, fmt.Sprintf("parameter %q has unknown rate %s", d.Name, d.Rate))
		}
	}
	return nil
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, d := range s {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Names returns parameter names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

// Defaults writes each default value into dst positionally.
func (s Schema) Defaults(dst []float32) {
	for i := range dst {
		if i < len(s) {
			dst[i] = s[i].Default
		}
	}
}

// Clone returns a copy that later edits to s cannot reach.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}
