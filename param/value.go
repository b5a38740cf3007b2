package param

// Value is one decoded parameter.
type Value float32

// Float32 returns the raw value.
func (v Value) Float32() float32 { return float32(v) }

// Clamp limits v to the descriptor's range.
func (v Value) Clamp(d Descriptor) Value {
	switch {
	case float32(v) < d.Min:
		return Value(d.Min)
	case float32(v) > d.Max:
		return Value(d.Max)
	}
	return v
}

// Values is the decoded parameter tuple for one block, indexed by schema
// position.
type Values struct {
	v []Value
}

// NewValues allocates storage for a schema of n parameters. Call it once per
// processor instance, outside the block cycle.
func NewValues(n int) Values {
	return Values{v: make([]Value, n)}
}

// Len returns the number of parameters.
func (p Values) Len() int { return len(p.v) }

// At returns the parameter at position i. It panics when i is outside the
// schema.
func (p Values) At(i int) Value { return p.v[i] }

// Decode converts raw host values into dst by position. It is total: it never
// fails, never clamps and keeps no state between calls. len(raw) must equal
// dst.Len(); the caller guarantees this when the instance is built.
func Decode(raw []float32, dst Values) {
	for i := range dst.v {
		dst.v[i] = Value(raw[i])
	}
}
