package draft

import "errors"

var (
	// ErrWorkflowViolation is returned when an operation is not allowed in the current state
	ErrWorkflowViolation = errors.New("workflow violation")

	// ErrAccessDenied is returned when the caller may not touch the draft or template
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned for unknown drafts, steps and templates
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when a step was changed by someone else since it was read
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrInvalidArgument is returned for malformed input
	ErrInvalidArgument = errors.New("invalid argument")
)
