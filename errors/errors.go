package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a processor's life the error occurred
type Phase string

const (
	PhaseConfigure Phase = "configure" // kind declaration and shape checks
	PhaseRegister  Phase = "register"  // glue installation against a host engine
	PhaseCreate    Phase = "create"    // node and compute core instantiation
	PhaseProcess   Phase = "process"   // block cycle
	PhaseLoad      Phase = "load"      // compute module loading
	PhaseBind      Phase = "bind"      // host-side glue bound to a core
)

// Kind categorizes the error
type Kind string

const (
	KindShapeMismatch  Kind = "shape_mismatch"
	KindInvalidShape   Kind = "invalid_shape"
	KindInvalidSchema  Kind = "invalid_schema"
	KindCapability     Kind = "capability"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindMissingExport  Kind = "missing_export"
	KindSignature      Kind = "signature"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindRegistration   Kind = "registration"
	KindInstantiation  Kind = "instantiation"
	KindUnavailable    Kind = "unavailable"
	KindTerminated     Kind = "terminated"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Processor string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Processor != "" {
		b.WriteString(" (")
		b.WriteString(e.Processor)
		b.WriteByte(')')
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Processor sets the processor kind name the error belongs to
func (b *Builder) Processor(name string) *Builder {
	b.err.Processor = name
	return b
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ShapeMismatch creates an error for storage or regions that disagree with a declared shape
func ShapeMismatch(phase Phase, path []string, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindShapeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("expected %d samples, got %d", want, got),
		Value:  got,
	}
}

// InvalidShape creates an error for a shape that can never be instantiated
func InvalidShape(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseConfigure,
		Kind:   KindInvalidShape,
		Path:   path,
		Detail: detail,
	}
}

// InvalidSchema creates an error for a malformed parameter schema
func InvalidSchema(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseConfigure,
		Kind:   KindInvalidSchema,
		Path:   path,
		Detail: detail,
	}
}

// Capability creates an error for a kind whose declared capability contradicts its shape
func Capability(name, detail string) *Error {
	return &Error{
		Phase:     PhaseConfigure,
		Kind:      KindCapability,
		Processor: name,
		Detail:    detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("region [%d, %d) exceeds memory size %d", offset, offset+length, size),
		Value:  offset,
	}
}

// MissingExport creates an error for a compute module lacking a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("required export %q not found", name),
	}
}

// Signature creates an error for an export whose core signature does not match the ABI
func Signature(name, want, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignature,
		Path:   []string{name},
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a closed or missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Registration creates a glue installation error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:     PhaseRegister,
		Kind:      KindRegistration,
		Processor: name,
		Detail:    "install glue",
		Cause:     cause,
	}
}

// Instantiation creates a compute core instantiation error
func Instantiation(name string, cause error) *Error {
	return &Error{
		Phase:     PhaseCreate,
		Kind:      KindInstantiation,
		Processor: name,
		Detail:    "instantiate compute core",
		Cause:     cause,
	}
}

// Unavailable creates an error for a host engine that can no longer accept work
func Unavailable(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnavailable,
		Detail: detail,
	}
}

// Terminated creates the error reported by every block cycle after an algorithm panicked or trapped
func Terminated(name string, cause any) *Error {
	return &Error{
		Phase:     PhaseProcess,
		Kind:      KindTerminated,
		Processor: name,
		Detail:    fmt.Sprintf("processing stopped: %v", cause),
		Value:     cause,
	}
}

// Load creates a compute module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
