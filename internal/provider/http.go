package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// apiClient is the shared HTTP plumbing for the two backend adapters.
type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func newAPIClient(baseURL, apiKey string) apiClient {
	return apiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs one authenticated JSON request. A non-nil out is decoded from
// the response body.
func (c *apiClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// postAdd performs an add request. Client-error responses carry the
// backend's rejection text and surface as *AddError so the caller's
// classifier can inspect the message.
func (c *apiClient) postAdd(ctx context.Context, backend, endpoint string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal add body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create add request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute add request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &AddError{Backend: backend, Message: readRejection(resp)}
	}
	if err := checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode add response: %w", err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("backend API error: %s", resp.Status)
	}
}

// readRejection extracts the backend's message from a failed add response.
// The backends answer with either a JSON array of validation failures or a
// single object with a message field; fall back to the raw body.
func readRejection(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(data) == 0 {
		return resp.Status
	}

	var failures []struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(data, &failures); err == nil && len(failures) > 0 && failures[0].ErrorMessage != "" {
		return failures[0].ErrorMessage
	}

	var single struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &single); err == nil && single.Message != "" {
		return single.Message
	}

	return string(data)
}
