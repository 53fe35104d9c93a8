package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the default retrieval backend address.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds every backend call; a call past it fails
	// rather than hangs.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig holds configuration for the retrieval backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://localhost:8000).
	BaseURL string

	// Timeout is the per-request upper bound (default: 30s).
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// Client talks to the retrieval backend over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// searchRequest is the request body for both search and query endpoints.
type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
	TopK   int    `json:"top_k"`
}

// backendDetail is the error body shape the backend returns on failure.
type backendDetail struct {
	Detail string `json:"detail"`
}

// NewClient creates a retrieval backend client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: baseURL,
		client:  client,
	}
}

// Search asks the backend for candidate chunks.
func (c *Client) Search(ctx context.Context, query, userID string, topK int) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "/api/v1/search", searchRequest{Query: query, UserID: userID, TopK: topK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate asks the backend for an LLM answer with sources.
func (c *Client) Generate(ctx context.Context, query, userID string, topK int) (*AnswerResponse, error) {
	var resp AnswerResponse
	if err := c.post(ctx, "/api/v1/query", searchRequest{Query: query, UserID: userID, TopK: topK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports whether the backend answers its health endpoint.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		message := string(raw)
		var detail backendDetail
		if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
			message = detail.Detail
		}
		return &BackendError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Ensure Client implements Retriever.
var _ Retriever = (*Client)(nil)
