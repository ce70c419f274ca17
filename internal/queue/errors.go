package queue

import "errors"

var (
	// ErrNotFound is returned when no job matches the requested id or URL.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when a job is not in the expected
	// status or the requested edge is not part of the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)
