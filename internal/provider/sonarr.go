package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sonarr adapts a Sonarr instance to the Service contract.
// Units are episodes; items are series.
type Sonarr struct {
	api        apiClient
	rootFolder string
}

// SonarrOption configures a Sonarr adapter.
type SonarrOption func(*Sonarr)

// WithSonarrHTTPClient sets a custom HTTP client (for testing).
func WithSonarrHTTPClient(hc *http.Client) SonarrOption {
	return func(s *Sonarr) { s.api.httpClient = hc }
}

// WithSonarrLogger sets a logger for debug output.
func WithSonarrLogger(log *slog.Logger) SonarrOption {
	return func(s *Sonarr) { s.api.log = log.With("component", "sonarr") }
}

// NewSonarr creates a Sonarr adapter.
func NewSonarr(baseURL, apiKey, rootFolder string, opts ...SonarrOption) *Sonarr {
	s := &Sonarr{
		api:        newAPIClient(baseURL, apiKey),
		rootFolder: rootFolder,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sonarr) Name() string { return "sonarr" }

type sonarrSeries struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	TVDBID int64  `json:"tvdbId"`
}

func (sr sonarrSeries) item() Item {
	return Item{
		ID:         sr.ID,
		Title:      sr.Title,
		ExternalID: sr.TVDBID,
		Year:       sr.Year,
	}
}

// LookupByExternalID searches Sonarr's catalog by TVDB id.
func (s *Sonarr) LookupByExternalID(ctx context.Context, id int64) ([]Match, error) {
	start := time.Now()

	var series []sonarrSeries
	endpoint := fmt.Sprintf("/api/v3/series/lookup?term=tvdb:%d", id)
	if err := s.api.do(ctx, http.MethodGet, endpoint, nil, &series); err != nil {
		return nil, fmt.Errorf("series lookup: %w", err)
	}

	matches := make([]Match, 0, len(series))
	for _, sr := range series {
		matches = append(matches, Match{Title: sr.Title, Year: sr.Year, ExternalID: sr.TVDBID})
	}

	if s.api.log != nil {
		s.api.log.Debug("series lookup", "tvdb_id", id, "matches", len(matches),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return matches, nil
}

// ListTracked returns every series Sonarr tracks.
func (s *Sonarr) ListTracked(ctx context.Context) ([]Item, error) {
	var series []sonarrSeries
	if err := s.api.do(ctx, http.MethodGet, "/api/v3/series", nil, &series); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	items := make([]Item, 0, len(series))
	for _, sr := range series {
		items = append(items, sr.item())
	}
	return items, nil
}

// Add registers a series. Monitoring is normally off at add time; the
// caller scopes monitoring to the exact episodes it wants afterwards.
func (s *Sonarr) Add(ctx context.Context, m Match, monitored bool, qualityProfileID int64) (*Item, error) {
	body := map[string]any{
		"tvdbId":           m.ExternalID,
		"title":            m.Title,
		"qualityProfileId": qualityProfileID,
		"rootFolderPath":   s.rootFolder,
		"monitored":        monitored,
		"seasonFolder":     true,
		"addOptions": map[string]any{
			"searchForMissingEpisodes": false,
			"monitor":                  "none",
		},
	}

	var added sonarrSeries
	if err := s.api.postAdd(ctx, s.Name(), "/api/v3/series", body, &added); err != nil {
		return nil, err
	}

	if s.api.log != nil {
		s.api.log.Debug("series added", "tvdb_id", m.ExternalID, "series_id", added.ID)
	}
	item := added.item()
	return &item, nil
}

// GetDetail fetches one series with its episode units. Newly added series
// populate episodes asynchronously, so Units may be empty for a while.
func (s *Sonarr) GetDetail(ctx context.Context, itemID int64) (*Item, error) {
	var sr sonarrSeries
	endpoint := fmt.Sprintf("/api/v3/series/%d", itemID)
	if err := s.api.do(ctx, http.MethodGet, endpoint, nil, &sr); err != nil {
		return nil, fmt.Errorf("get series %d: %w", itemID, err)
	}

	var episodes []struct {
		ID            int64  `json:"id"`
		SeasonNumber  int    `json:"seasonNumber"`
		EpisodeNumber int    `json:"episodeNumber"`
		Title         string `json:"title"`
		Monitored     bool   `json:"monitored"`
		HasFile       bool   `json:"hasFile"`
	}
	endpoint = fmt.Sprintf("/api/v3/episode?seriesId=%d", itemID)
	if err := s.api.do(ctx, http.MethodGet, endpoint, nil, &episodes); err != nil {
		return nil, fmt.Errorf("get episodes for series %d: %w", itemID, err)
	}

	item := sr.item()
	item.Units = make([]Unit, 0, len(episodes))
	for _, ep := range episodes {
		item.Units = append(item.Units, Unit{
			ID:        ep.ID,
			Season:    ep.SeasonNumber,
			Episode:   ep.EpisodeNumber,
			Title:     ep.Title,
			Monitored: ep.Monitored,
			HasFile:   ep.HasFile,
		})
	}
	return &item, nil
}

// SetUnitsMonitored flips monitoring on the given episodes.
func (s *Sonarr) SetUnitsMonitored(ctx context.Context, unitIDs []int64, monitored bool) error {
	if len(unitIDs) == 0 {
		return nil
	}
	body := map[string]any{
		"episodeIds": unitIDs,
		"monitored":  monitored,
	}
	if err := s.api.do(ctx, http.MethodPut, "/api/v3/episode/monitor", body, nil); err != nil {
		return fmt.Errorf("set episodes monitored: %w", err)
	}
	return nil
}

// TriggerSearch asks Sonarr to search for the given episodes.
func (s *Sonarr) TriggerSearch(ctx context.Context, unitIDs []int64) error {
	if len(unitIDs) == 0 {
		return nil
	}
	body := map[string]any{
		"name":       "EpisodeSearch",
		"episodeIds": unitIDs,
	}
	if err := s.api.do(ctx, http.MethodPost, "/api/v3/command", body, nil); err != nil {
		return fmt.Errorf("trigger episode search: %w", err)
	}
	return nil
}

// ListQueue returns Sonarr's active download queue.
func (s *Sonarr) ListQueue(ctx context.Context) ([]QueueRecord, error) {
	var page struct {
		Records []struct {
			ID                    int64  `json:"id"`
			Title                 string `json:"title"`
			Size                  int64  `json:"size"`
			SizeLeft              int64  `json:"sizeleft"`
			Status                string `json:"status"`
			TrackedDownloadStatus string `json:"trackedDownloadStatus"`
			EpisodeID             int64  `json:"episodeId"`
		} `json:"records"`
	}
	if err := s.api.do(ctx, http.MethodGet, "/api/v3/queue?pageSize=1000", nil, &page); err != nil {
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
		if rec.EpisodeID != 0 {
			q.UnitIDs = []int64{rec.EpisodeID}
		}
		records = append(records, q)
	}
	return records, nil
}

// DeleteQueueRecord removes one queue entry.
func (s *Sonarr) DeleteQueueRecord(ctx context.Context, id int64, removeFromClient bool) error {
	endpoint := fmt.Sprintf("/api/v3/queue/%d?removeFromClient=%t", id, removeFromClient)
	if err := s.api.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete queue record %d: %w", id, err)
	}
	return nil
}

// DeleteItem removes a series from Sonarr.
func (s *Sonarr) DeleteItem(ctx context.Context, itemID int64, opts DeleteOptions) error {
	endpoint := fmt.Sprintf("/api/v3/series/%d?deleteFiles=%t&addImportListExclusion=%t",
		itemID, opts.DeleteFiles, opts.AddExclusion)
	if err := s.api.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete series %d: %w", itemID, err)
	}
	return nil
}
