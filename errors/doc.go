// Package errors provides structured error types for the statbridge library.
//
// Errors are categorized by Phase (where in the bridge the error occurred)
// and Kind (error category). The Error type includes context: value path,
// engine status, request ID, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseExecute, errors.KindTimeout).
//		RequestID("r-17").
//		Detail("no response within %s", timeout).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Timeout("r-17", 30*time.Second)
//	err := errors.Correlation("r-17", got)
//
// All errors implement the standard error interface and support errors.Is/As.
// Predicate helpers (IsTimeout, IsBusy, ...) classify wrapped chains.
package errors
