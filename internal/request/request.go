// Package request owns the media request lifecycle: the data model, the
// duplicate-safe submission/approval engine, and status aggregation.
package request

import "time"

// Kind distinguishes movie requests from episode-set requests.
type Kind string

const (
	KindMovie    Kind = "movie"
	KindEpisodes Kind = "episodes"
)

// Request is one user ask for a unit of media.
type Request struct {
	ID           int64
	Kind         Kind
	CatalogID    int64  // title id in the metadata catalog
	Title        string // display title, filled in once the catalog resolves it
	Status       Status
	StatusReason *string
	RequestedBy  string
	CreatedAt    time.Time
	Items        []*Item
}

// Item is one requested sub-unit: the whole movie, or a single episode.
// ProviderItemID is the backend's unit id once resolved; ProviderParentID is
// the series id episode items hang off (nil for movies).
type Item struct {
	ID               int64
	RequestID        int64
	Provider         string
	ProviderItemID   *int64
	ProviderParentID *int64
	Season           *int
	Episode          *int
	Status           ItemStatus
	QueueErrorSeen   bool // set when a reconciliation pass saw this item's download in an error state
}

// EpisodeKey identifies one (season, episode) pair. The zero value stands
// for a movie, which has no sub-units.
type EpisodeKey struct {
	Season  int
	Episode int
}

// Key returns the item's episode key.
func (i *Item) Key() EpisodeKey {
	k := EpisodeKey{}
	if i.Season != nil {
		k.Season = *i.Season
	}
	if i.Episode != nil {
		k.Episode = *i.Episode
	}
	return k
}
