// Package errors provides structured error types for pure-audio.
//
// Errors are categorized by Phase (where in a processor's life the error
// occurred) and Kind (error category). Configuration errors carry the
// PhaseConfigure phase and are always returned at construction or
// registration time, never from inside a block cycle.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConfigure, errors.KindInvalidSchema).
//		Processor("Gain").
//		Path("params", "Volume").
//		Detail("min %v greater than max %v", 1.0, 0.0).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ShapeMismatch(errors.PhaseConfigure, path, 128, 64)
//	err := errors.MissingExport("process")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
