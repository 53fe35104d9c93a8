// Package retrieval defines the contract with the external retrieval
// backend and an HTTP client for it.
//
// The backend owns embedding computation, vector indexing, and answer
// generation; this service only consumes its search and query endpoints.
package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the backend could not be reached at all, as
// opposed to the backend reporting an error of its own.
var ErrUnavailable = errors.New("retrieval backend unavailable")

// BackendError is an error reported by the retrieval backend itself.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("retrieval backend error (status %d): %s", e.StatusCode, e.Message)
}

// RawResult is one candidate chunk returned by the backend. It is immutable
// once received; the curator consumes it and discards it.
type RawResult struct {
	ChunkID         string         `json:"chunk_id"`
	DocumentID      string         `json:"document_id"`
	Content         string         `json:"content"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
}

// SearchResponse is the backend's answer to a search call.
type SearchResponse struct {
	Query          string      `json:"query"`
	Results        []RawResult `json:"results"`
	QueryEmbedding []float64   `json:"query_embedding,omitempty"`
}

// AnswerResponse is the backend's answer to a generate call: retrieved
// sources plus an LLM-written answer.
type AnswerResponse struct {
	Query          string      `json:"query"`
	Answer         string      `json:"answer"`
	Sources        []RawResult `json:"sources"`
	QueryEmbedding []float64   `json:"query_embedding,omitempty"`
}

// Retriever is the capability this service consumes. topK must be in [1, 20].
type Retriever interface {
	// Search returns candidate chunks for a query.
	Search(ctx context.Context, query, userID string, topK int) (*SearchResponse, error)

	// Generate returns an LLM answer grounded in retrieved chunks.
	Generate(ctx context.Context, query, userID string, topK int) (*AnswerResponse, error)

	// Health reports whether the backend is reachable and ready.
	Health(ctx context.Context) bool
}
