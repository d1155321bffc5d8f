package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Radarr adapts a Radarr instance to the Service contract.
// Movies are their own unit: unit ids equal movie ids.
type Radarr struct {
	api        apiClient
	rootFolder string
}

// RadarrOption configures a Radarr adapter.
type RadarrOption func(*Radarr)

// WithRadarrHTTPClient sets a custom HTTP client (for testing).
func WithRadarrHTTPClient(hc *http.Client) RadarrOption {
	return func(r *Radarr) { r.api.httpClient = hc }
}

// WithRadarrLogger sets a logger for debug output.
func WithRadarrLogger(log *slog.Logger) RadarrOption {
	return func(r *Radarr) { r.api.log = log.With("component", "radarr") }
}

// NewRadarr creates a Radarr adapter.
func NewRadarr(baseURL, apiKey, rootFolder string, opts ...RadarrOption) *Radarr {
	r := &Radarr{
		api:        newAPIClient(baseURL, apiKey),
		rootFolder: rootFolder,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Radarr) Name() string { return "radarr" }

type radarrMovie struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	TMDBID  int64  `json:"tmdbId"`
	HasFile bool   `json:"hasFile"`
}

func (m radarrMovie) item() Item {
	return Item{
		ID:         m.ID,
		Title:      m.Title,
		ExternalID: m.TMDBID,
		Year:       m.Year,
		HasFile:    m.HasFile,
	}
}

// LookupByExternalID searches Radarr's catalog by TMDB id.
func (r *Radarr) LookupByExternalID(ctx context.Context, id int64) ([]Match, error) {
	start := time.Now()

	var movies []radarrMovie
	endpoint := fmt.Sprintf("/api/v3/movie/lookup?term=tmdb:%d", id)
	if err := r.api.do(ctx, http.MethodGet, endpoint, nil, &movies); err != nil {
		return nil, fmt.Errorf("movie lookup: %w", err)
	}

	matches := make([]Match, 0, len(movies))
	for _, m := range movies {
		matches = append(matches, Match{Title: m.Title, Year: m.Year, ExternalID: m.TMDBID})
	}

	if r.api.log != nil {
		r.api.log.Debug("movie lookup", "tmdb_id", id, "matches", len(matches),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return matches, nil
}

// ListTracked returns every movie Radarr tracks.
func (r *Radarr) ListTracked(ctx context.Context) ([]Item, error) {
	var movies []radarrMovie
	if err := r.api.do(ctx, http.MethodGet, "/api/v3/movie", nil, &movies); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	items := make([]Item, 0, len(movies))
	for _, m := range movies {
		items = append(items, m.item())
	}
	return items, nil
}

// Add registers a movie.
func (r *Radarr) Add(ctx context.Context, m Match, monitored bool, qualityProfileID int64) (*Item, error) {
	body := map[string]any{
		"tmdbId":           m.ExternalID,
		"title":            m.Title,
		"year":             m.Year,
		"qualityProfileId": qualityProfileID,
		"rootFolderPath":   r.rootFolder,
		"monitored":        monitored,
		"addOptions": map[string]any{
			"searchForMovie": false, // searches are triggered explicitly
		},
	}

	var added radarrMovie
	if err := r.api.postAdd(ctx, r.Name(), "/api/v3/movie", body, &added); err != nil {
		return nil, err
	}

	if r.api.log != nil {
		r.api.log.Debug("movie added", "tmdb_id", m.ExternalID, "movie_id", added.ID)
	}
	item := added.item()
	return &item, nil
}

// GetDetail fetches one movie. The single unit mirrors the movie itself.
func (r *Radarr) GetDetail(ctx context.Context, itemID int64) (*Item, error) {
	var m struct {
		radarrMovie
		Monitored bool `json:"monitored"`
	}
	endpoint := fmt.Sprintf("/api/v3/movie/%d", itemID)
	if err := r.api.do(ctx, http.MethodGet, endpoint, nil, &m); err != nil {
		return nil, fmt.Errorf("get movie %d: %w", itemID, err)
	}

	item := m.item()
	item.Units = []Unit{{
		ID:        m.ID,
		Title:     m.Title,
		Monitored: m.Monitored,
		HasFile:   m.HasFile,
	}}
	return &item, nil
}

// SetUnitsMonitored flips monitoring on the given movies.
func (r *Radarr) SetUnitsMonitored(ctx context.Context, unitIDs []int64, monitored bool) error {
	if len(unitIDs) == 0 {
		return nil
	}
	body := map[string]any{
		"movieIds":  unitIDs,
		"monitored": monitored,
	}
	if err := r.api.do(ctx, http.MethodPut, "/api/v3/movie/editor", body, nil); err != nil {
		return fmt.Errorf("set movies monitored: %w", err)
	}
	return nil
}

// TriggerSearch asks Radarr to search for the given movies.
func (r *Radarr) TriggerSearch(ctx context.Context, unitIDs []int64) error {
	if len(unitIDs) == 0 {
		return nil
	}
	body := map[string]any{
		"name":     "MoviesSearch",
		"movieIds": unitIDs,
	}
	if err := r.api.do(ctx, http.MethodPost, "/api/v3/command", body, nil); err != nil {
		return fmt.Errorf("trigger movie search: %w", err)
	}
	return nil
}

// ListQueue returns Radarr's active download queue.
func (r *Radarr) ListQueue(ctx context.Context) ([]QueueRecord, error) {
	var page struct {
		Records []struct {
			ID                    int64  `json:"id"`
			Title                 string `json:"title"`
			Size                  int64  `json:"size"`
			SizeLeft              int64  `json:"sizeleft"`
			Status                string `json:"status"`
			TrackedDownloadStatus string `json:"trackedDownloadStatus"`
			MovieID               int64  `json:"movieId"`
		} `json:"records"`
	}
	if err := r.api.do(ctx, http.MethodGet, "/api/v3/queue?pageSize=1000", nil, &page); err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	records := make([]QueueRecord, 0, len(page.Records))
	for _, rec := range page.Records {
		q := QueueRecord{
			ID:                    rec.ID,
			Title:                 rec.Title,
			Size:                  rec.Size,
			SizeLeft:              rec.SizeLeft,
			Status:                rec.Status,
			TrackedDownloadStatus: rec.TrackedDownloadStatus,
		}
		if rec.MovieID != 0 {
			q.UnitIDs = []int64{rec.MovieID}
		}
		records = append(records, q)
	}
	return records, nil
}

// DeleteQueueRecord removes one queue entry.
func (r *Radarr) DeleteQueueRecord(ctx context.Context, id int64, removeFromClient bool) error {
	endpoint := fmt.Sprintf("/api/v3/queue/%d?removeFromClient=%t", id, removeFromClient)
	if err := r.api.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete queue record %d: %w", id, err)
	}
	return nil
}

// DeleteItem removes a movie from Radarr.
func (r *Radarr) DeleteItem(ctx context.Context, itemID int64, opts DeleteOptions) error {
	endpoint := fmt.Sprintf("/api/v3/movie/%d?deleteFiles=%t&addImportExclusion=%t",
		itemID, opts.DeleteFiles, opts.AddExclusion)
	if err := r.api.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete movie %d: %w", itemID, err)
	}
	return nil
}
