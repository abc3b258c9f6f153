// Package errors provides structured error types for the session engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Every Kind maps to an errno-style Code, which is what the command loop prints in
// "Error: command '<cmd>' failed with <code>".
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindInvalidInput).
//		Path("M", "add").
//		Detail("missing argument %d", 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseProtocol, "module", "M")
//	err := errors.Overflow(errors.PhaseRuntime, "module", 500)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
