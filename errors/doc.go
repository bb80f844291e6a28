// Package errors provides structured error types for the ffi-runtime library.
//
// Errors are categorized by Phase (which layer failed) and Kind (error category).
// The Error type carries the boundary type, vtable slot, field path and cause chain.
//
// Only Go-side API failures are reported through this package. Contract
// violations of the dispatch protocol (double free, use after release, polling a
// completed future) are caller bugs and are never turned into errors.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBoundary, errors.KindOutOfBounds).
//		Type("char_p").
//		Slot("concat").
//		Detail("string at %d runs past memory end", ptr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseBoundary, ptr, 16)
//	err := errors.Panicked(errors.PhaseExecutor, "poll", recovered)
//
// All errors implement the standard error interface and support errors.Is/As.
// Kind-only sentinels such as ErrCanceled match an error of that kind in any phase.
package errors
