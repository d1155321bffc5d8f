package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend responses.
var (
	// ErrNotFound is returned when the backend does not track the item.
	ErrNotFound = errors.New("item not found in backend")

	// ErrUnauthorized is returned when the API key is rejected.
	ErrUnauthorized = errors.New("unauthorized: invalid api key")
)

// AddError reports a rejected add. The backend has no structured code for
// the "already exists" case, so Message carries its raw text for the
// classifier to inspect.
type AddError struct {
	Backend string
	Message string
}

func (e *AddError) Error() string {
	return fmt.Sprintf("%s rejected add: %s", e.Backend, e.Message)
}
