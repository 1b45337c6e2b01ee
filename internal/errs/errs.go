// Package errs defines the error taxonomy shared across mediaparser's core
// components. These are sentinel kinds, not concrete error types: callers
// wrap them with fmt.Errorf("...: %w", ErrNotFound) and test with errors.Is.
package errs

import "errors"

var (
	// ErrValidation marks a synchronous ingestion failure: disallowed
	// extension, path escape, missing file. No job is created.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition marks an illegal job status change requested
	// through the API surface. No state is mutated.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrThresholdExceeded marks a job halted by the error-rate rule.
	ErrThresholdExceeded = errors.New("error threshold exceeded")

	// ErrFatal marks an unrecoverable orchestrator failure. The job is
	// moved to FAILED before this is returned to the task queue, which
	// applies its own retry policy.
	ErrFatal = errors.New("fatal orchestrator error")

	// ErrNotFound marks a lookup against an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrTransientIO marks a retriable filesystem or subprocess failure.
	// Raised by the orchestrator it is handled by the task queue's retry
	// policy; raised by a worker it is captured as a per-file ProcessingError
	// instead and the job continues.
	ErrTransientIO = errors.New("transient I/O error")
)

// ProcessingError wraps a per-file failure captured on a File record. It is
// never propagated to the orchestrator; C5 always returns one of these as a
// field on its result record rather than an error return.
type ProcessingError struct {
	Path string
	Op   string
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error { return e.Err }
