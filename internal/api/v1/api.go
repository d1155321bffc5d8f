// Package v1 implements the native REST API for request brokering.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fetcharr/fetcharr/internal/request"
	"github.com/fetcharr/fetcharr/internal/scheduler"
)

// Server is the v1 API server.
type Server struct {
	engine *request.Engine
	store  *request.Store
	jobs   *scheduler.JobStore
}

// New creates a new v1 API server.
func New(engine *request.Engine, store *request.Store, jobs *scheduler.JobStore) *Server {
	return &Server{engine: engine, store: store, jobs: jobs}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Requests
	mux.HandleFunc("GET /api/v1/requests", s.listRequests)
	mux.HandleFunc("GET /api/v1/requests/{id}", s.getRequest)
	mux.HandleFunc("POST /api/v1/requests", s.submitRequest)
	mux.HandleFunc("POST /api/v1/requests/{id}/approve", s.approveRequest)
	mux.HandleFunc("POST /api/v1/requests/{id}/deny", s.denyRequest)
	mux.HandleFunc("DELETE /api/v1/requests/{id}", s.deleteRequest)

	// Jobs
	mux.HandleFunc("GET /api/v1/jobs", s.listJobs)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request, name string) (int64, error) {
	idStr := r.PathValue(name)
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	items := make([]requestResponse, len(reqs))
	for i, req := range reqs {
		items[i] = requestToResponse(req)
	}
	writeJSON(w, http.StatusOK, listRequestsResponse{Items: items, Total: len(items)})
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	req, err := s.store.Get(id)
	if errors.Is(err, request.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, requestToResponse(req))
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	res, err := s.engine.Submit(r.Context(), request.SubmitParams{
		Kind:        request.Kind(body.Kind),
		CatalogID:   body.CatalogID,
		Season:      body.Season,
		Episodes:    body.Episodes,
		RequestedBy: body.RequestedBy,
		Elevated:    body.AutoApprove,
	})
	var verr *request.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "VALIDATION", verr.Error())
		return
	}
	if errors.Is(err, request.ErrNoBackend) {
		writeError(w, http.StatusUnprocessableEntity, "NO_BACKEND", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SUBMIT_FAILED", err.Error())
		return
	}

	resp := submitResponse{Conflicts: conflictsToResponse(res.Conflicts)}
	if res.Request == nil {
		// Everything asked for was already claimed.
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	created, err := s.store.Get(res.Request.ID)
	if err == nil {
		resp.Request = ptr(requestToResponse(created))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	switch err := s.engine.Approve(r.Context(), id); {
	case err == nil:
		req, gerr := s.store.Get(id)
		if gerr != nil {
			writeError(w, http.StatusInternalServerError, "DB_ERROR", gerr.Error())
			return
		}
		writeJSON(w, http.StatusOK, requestToResponse(req))
	case errors.Is(err, request.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, request.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "ALREADY_RESOLVED", err.Error())
	case errors.Is(err, request.ErrNoBackend):
		writeError(w, http.StatusUnprocessableEntity, "NO_BACKEND", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "APPROVE_FAILED", err.Error())
	}
}

func (s *Server) denyRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	switch err := s.engine.Deny(r.Context(), id); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, request.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, request.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "ALREADY_RESOLVED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "DENY_FAILED", err.Error())
	}
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	switch err := s.engine.Delete(r.Context(), id); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, request.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, request.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
	}
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	items := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		items[i] = jobToResponse(j)
	}
	writeJSON(w, http.StatusOK, listJobsResponse{Items: items})
}

func ptr[T any](v T) *T { return &v }
