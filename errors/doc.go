// Package errors provides structured error types for the asmtrace library.
//
// Errors are categorized by Phase (where in the capture pipeline the error
// occurred) and Kind (error category). Capture-time errors are almost all
// fatal by policy: a partially written trace is worse than an abrupt stop,
// so the session logs the structured error and terminates the process.
//
// Use the convenience constructors:
//
//	err := errors.IO(errors.PhaseEncode, "write record tag", cause)
//	err := errors.Metadata("GetMethodName", cause)
package errors
