package request

import (
	"errors"
	"fmt"
)

// Sentinel errors for the request package.
var (
	// ErrNotFound is returned when a request does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrAlreadyResolved is returned when an operation requires a pending
	// request but the request has moved on.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrInvalidTransition is returned on a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoBackend is returned when a request targets a backend the
	// deployment does not have configured.
	ErrNoBackend = errors.New("backend not configured")
)

// ValidationError reports malformed submission input. It is raised before
// any lock is taken and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
