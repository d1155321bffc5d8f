package provider

import (
	"errors"
	"regexp"
)

// ExistsClassifier decides whether an add failure means the item is already
// registered in the backend. The backends report this only through message
// text, so the classifier is pluggable rather than hardcoded; swap it out if
// a backend ever grows a structured error code.
type ExistsClassifier func(error) bool

var alreadyExistsPattern = regexp.MustCompile(`(?i)already\s+(exists|been\s+added|added|configured)`)

// DefaultExistsClassifier matches the known "already exists" message shapes
// produced by the movie and series managers.
func DefaultExistsClassifier(err error) bool {
	var addErr *AddError
	if !errors.As(err, &addErr) {
		return false
	}
	return alreadyExistsPattern.MatchString(addErr.Message)
}
