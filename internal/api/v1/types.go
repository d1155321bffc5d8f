package v1

import (
	"time"

	"github.com/fetcharr/fetcharr/internal/request"
	"github.com/fetcharr/fetcharr/internal/scheduler"
)

type submitRequestBody struct {
	Kind        string `json:"kind"`
	CatalogID   int64  `json:"catalog_id"`
	Season      int    `json:"season,omitempty"`
	Episodes    []int  `json:"episodes,omitempty"`
	RequestedBy string `json:"requested_by"`
	AutoApprove bool   `json:"auto_approve,omitempty"`
}

type requestResponse struct {
	ID           int64          `json:"id"`
	Kind         string         `json:"kind"`
	CatalogID    int64          `json:"catalog_id"`
	Title        string         `json:"title,omitempty"`
	Status       string         `json:"status"`
	StatusReason *string        `json:"status_reason,omitempty"`
	RequestedBy  string         `json:"requested_by"`
	CreatedAt    time.Time      `json:"created_at"`
	Items        []itemResponse `json:"items"`
}

type itemResponse struct {
	ID      int64  `json:"id"`
	Season  *int   `json:"season,omitempty"`
	Episode *int   `json:"episode,omitempty"`
	Status  string `json:"status"`
}

type conflictResponse struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

type submitResponse struct {
	Request   *requestResponse   `json:"request,omitempty"`
	Conflicts []conflictResponse `json:"conflicts,omitempty"`
}

type listRequestsResponse struct {
	Items []requestResponse `json:"items"`
	Total int               `json:"total"`
}

type jobResponse struct {
	Name                string     `json:"name"`
	Schedule            string     `json:"schedule"`
	Enabled             bool       `json:"enabled"`
	LastRun             *time.Time `json:"last_run,omitempty"`
	NextRun             *time.Time `json:"next_run,omitempty"`
	LastError           *string    `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type listJobsResponse struct {
	Items []jobResponse `json:"items"`
}

func requestToResponse(r *request.Request) requestResponse {
	resp := requestResponse{
		ID:           r.ID,
		Kind:         string(r.Kind),
		CatalogID:    r.CatalogID,
		Title:        r.Title,
		Status:       string(r.Status),
		StatusReason: r.StatusReason,
		RequestedBy:  r.RequestedBy,
		CreatedAt:    r.CreatedAt,
		Items:        make([]itemResponse, len(r.Items)),
	}
	for i, it := range r.Items {
		resp.Items[i] = itemResponse{
			ID:      it.ID,
			Season:  it.Season,
			Episode: it.Episode,
			Status:  string(it.Status),
		}
	}
	return resp
}

func conflictsToResponse(keys []request.EpisodeKey) []conflictResponse {
	out := make([]conflictResponse, len(keys))
	for i, k := range keys {
		out[i] = conflictResponse{Season: k.Season, Episode: k.Episode}
	}
	return out
}

func jobToResponse(j scheduler.ScheduledJob) jobResponse {
	return jobResponse{
		Name:                j.Name,
		Schedule:            j.Schedule,
		Enabled:             j.Enabled,
		LastRun:             j.LastRun,
		NextRun:             j.NextRun,
		LastError:           j.LastError,
		ConsecutiveFailures: j.ConsecutiveFailures,
	}
}
