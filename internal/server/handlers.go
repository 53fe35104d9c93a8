package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ksato/raggate/internal/retrieval"
)

// handlers holds the HTTP handlers for the query API.
type handlers struct {
	processor QueryProcessor
	logger    *slog.Logger
}

// queryRequest is the body for both search and query endpoints.
type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// validate rejects malformed requests before they reach the pipeline.
func (q *queryRequest) validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return errors.New("query is required")
	}
	if len(q.Query) > maxQueryLength {
		return errors.New("query is too long")
	}
	return nil
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.processor.ProcessSearch(r.Context(), req.Query, req.UserID, req.TopK)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.processor.ProcessLLMQuery(r.Context(), req.Query, req.UserID, req.TopK)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ready reports readiness, including retrieval backend reachability.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if !h.processor.Healthy(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "retrieval backend unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.processor.CacheStats())
}

func (h *handlers) cacheFlush(w http.ResponseWriter, _ *http.Request) {
	removed := h.processor.FlushCache()
	writeJSON(w, http.StatusOK, map[string]int{"entries_removed": removed})
}

func (h *handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return req, false
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return req, false
	}
	return req, true
}

// writeUpstreamError maps pipeline errors to status codes: connectivity
// failures are 503, backend-reported errors 502, everything else 500.
func (h *handlers) writeUpstreamError(w http.ResponseWriter, err error) {
	var backendErr *retrieval.BackendError

	switch {
	case errors.Is(err, retrieval.ErrUnavailable):
		h.logger.Error("retrieval backend unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "retrieval backend unavailable"})
	case errors.As(err, &backendErr):
		h.logger.Error("retrieval backend reported an error", "status", backendErr.StatusCode, "message", backendErr.Message)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: backendErr.Message})
	default:
		h.logger.Error("query processing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
