// Package provider defines the calling contract for external acquisition
// backends (a movie manager and a series manager) and HTTP adapters for both.
package provider

import "context"

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks github.com/fetcharr/fetcharr/internal/provider Service

// Match is a catalog search hit in a backend, not yet tracked.
type Match struct {
	Title      string
	Year       int
	ExternalID int64 // the backend's external reference: TMDB id for movies, TVDB id for series
}

// Unit is the smallest individually monitorable thing in a backend: a whole
// movie, or one episode of a series.
type Unit struct {
	ID        int64
	Season    int
	Episode   int
	Title     string
	Monitored bool
	HasFile   bool
}

// Item is a record the backend already tracks.
type Item struct {
	ID         int64
	Title      string
	ExternalID int64
	Year       int
	HasFile    bool   // movies only
	Units      []Unit // populated by GetDetail for series; empty on ListTracked
}

// QueueRecord is one active download in the backend's queue.
type QueueRecord struct {
	ID                    int64
	Title                 string
	Size                  int64
	SizeLeft              int64
	Status                string
	TrackedDownloadStatus string
	UnitIDs               []int64 // may be empty when the backend has not mapped the grab yet
}

// Errored reports whether the queue record is in an error or stalled state.
func (q QueueRecord) Errored() bool {
	switch q.Status {
	case "failed", "stalled", "warning":
		return true
	}
	return q.TrackedDownloadStatus == "error" || q.TrackedDownloadStatus == "warning"
}

// DeleteOptions controls item removal.
type DeleteOptions struct {
	DeleteFiles  bool
	AddExclusion bool
}

// Service is the capability set every acquisition backend exposes. The wire
// format behind it is the backend's own business; callers only rely on this
// contract.
type Service interface {
	// Name identifies the backend for logging and request items.
	Name() string

	// LookupByExternalID searches the backend's catalog by external id.
	// An empty slice means no match; it is not an error.
	LookupByExternalID(ctx context.Context, id int64) ([]Match, error)

	// ListTracked enumerates everything already registered in the backend.
	ListTracked(ctx context.Context) ([]Item, error)

	// Add registers a match. Rejections come back as *AddError.
	Add(ctx context.Context, m Match, monitored bool, qualityProfileID int64) (*Item, error)

	// GetDetail fetches one tracked item including its units.
	// Returns ErrNotFound if the backend no longer tracks the item.
	GetDetail(ctx context.Context, itemID int64) (*Item, error)

	// SetUnitsMonitored flips monitoring for the given units. Idempotent.
	SetUnitsMonitored(ctx context.Context, unitIDs []int64, monitored bool) error

	// TriggerSearch fires a search for the given units. Idempotent.
	TriggerSearch(ctx context.Context, unitIDs []int64) error

	// ListQueue returns the backend's active download queue.
	ListQueue(ctx context.Context) ([]QueueRecord, error)

	// DeleteQueueRecord removes one in-flight queue entry.
	DeleteQueueRecord(ctx context.Context, id int64, removeFromClient bool) error

	// DeleteItem removes a tracked item. Best-effort for callers.
	DeleteItem(ctx context.Context, itemID int64, opts DeleteOptions) error
}
