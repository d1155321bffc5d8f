package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client is an HTTP implementation of Service against the metadata service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log.With("component", "catalog") }
}

// NewClient creates a catalog client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTitle fetches one title by catalog id.
func (c *Client) GetTitle(ctx context.Context, id int64) (*Title, error) {
	start := time.Now()

	endpoint := fmt.Sprintf("%s/titles/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTitleNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog API error: %s", resp.Status)
	}

	var body struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		SecondaryID int64  `json:"externalSecondaryId"`
		ReleaseYear int    `json:"releaseYear"`
		PosterPath  string `json:"posterPath"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode title response: %w", err)
	}

	if c.log != nil {
		c.log.Debug("fetched title", "id", id, "name", body.Name,
			"duration_ms", time.Since(start).Milliseconds())
	}

	return &Title{
		ID:          body.ID,
		Name:        body.Name,
		SecondaryID: body.SecondaryID,
		Year:        body.ReleaseYear,
		PosterPath:  body.PosterPath,
	}, nil
}
