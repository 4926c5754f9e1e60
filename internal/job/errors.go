package job

import "errors"

// Sentinel errors shared by the orchestrator, stores and transports.
// Callers classify failures with errors.Is.
var (
	// ErrNotFound is returned when a jobId is unknown to the record store.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when a request is missing required fields
	// or carries values that cannot be normalized.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when an operation is not allowed in the job's
	// current state (terminal job, illegal transition, decision not APPROVE).
	ErrConflict = errors.New("conflict with job state")

	// ErrOracleUnavailable is returned by oracles that cannot produce a judgment.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrParse is returned when an oracle answered with non-conforming output.
	ErrParse = errors.New("oracle output does not conform")

	// ErrProvider is returned when the calendar provider fails to list or book.
	ErrProvider = errors.New("calendar provider error")
)
