package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps HTTP calls to the fetcharr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new fetcharr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// --- Wire types (mirror the server's v1 responses) ---

type RequestResponse struct {
	ID           int64          `json:"id"`
	Kind         string         `json:"kind"`
	CatalogID    int64          `json:"catalog_id"`
	Title        string         `json:"title,omitempty"`
	Status       string         `json:"status"`
	StatusReason *string        `json:"status_reason,omitempty"`
	RequestedBy  string         `json:"requested_by"`
	CreatedAt    time.Time      `json:"created_at"`
	Items        []ItemResponse `json:"items"`
}

type ItemResponse struct {
	ID      int64  `json:"id"`
	Season  *int   `json:"season,omitempty"`
	Episode *int   `json:"episode,omitempty"`
	Status  string `json:"status"`
}

type ConflictResponse struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

type SubmitResponse struct {
	Request   *RequestResponse   `json:"request,omitempty"`
	Conflicts []ConflictResponse `json:"conflicts,omitempty"`
}

type ListRequestsResponse struct {
	Items []RequestResponse `json:"items"`
	Total int               `json:"total"`
}

type JobResponse struct {
	Name                string     `json:"name"`
	Schedule            string     `json:"schedule"`
	Enabled             bool       `json:"enabled"`
	LastRun             *time.Time `json:"last_run,omitempty"`
	NextRun             *time.Time `json:"next_run,omitempty"`
	LastError           *string    `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type ListJobsResponse struct {
	Items []JobResponse `json:"items"`
}

type SubmitRequestBody struct {
	Kind        string `json:"kind"`
	CatalogID   int64  `json:"catalog_id"`
	Season      int    `json:"season,omitempty"`
	Episodes    []int  `json:"episodes,omitempty"`
	RequestedBy string `json:"requested_by"`
	AutoApprove bool   `json:"auto_approve,omitempty"`
}

// --- API methods ---

func (c *Client) ListRequests() (*ListRequestsResponse, error) {
	var out ListRequestsResponse
	if err := c.get("/api/v1/requests", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRequest(id int64) (*RequestResponse, error) {
	var out RequestResponse
	if err := c.get(fmt.Sprintf("/api/v1/requests/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitRequest posts a new request. A 409 response is not an error: the
// decoded body carries the conflicting episode keys instead of a request.
func (c *Client) SubmitRequest(body SubmitRequestBody) (*SubmitResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/v1/requests", "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveRequest(id int64) error {
	return c.post(fmt.Sprintf("/api/v1/requests/%d/approve", id), nil, nil)
}

func (c *Client) DenyRequest(id int64) error {
	return c.post(fmt.Sprintf("/api/v1/requests/%d/deny", id), nil, nil)
}

func (c *Client) DeleteRequest(id int64) error {
	return c.delete(fmt.Sprintf("/api/v1/requests/%d", id))
}

func (c *Client) ListJobs() (*ListJobsResponse, error) {
	var out ListJobsResponse
	if err := c.get("/api/v1/jobs", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
