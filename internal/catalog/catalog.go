// Package catalog resolves title metadata from the external metadata service.
package catalog

import (
	"context"
	"errors"
)

// ErrTitleNotFound is returned when the catalog has no such title.
var ErrTitleNotFound = errors.New("title not found in catalog")

// Title is the catalog's record for one movie or series.
type Title struct {
	ID          int64
	Name        string
	SecondaryID int64 // the id the series backend keys on (TVDB); zero for movies
	Year        int
	PosterPath  string
}

// Service resolves catalog ids to title metadata. The catalog owns the data;
// this is a read-only collaborator contract.
type Service interface {
	GetTitle(ctx context.Context, id int64) (*Title, error)
}
