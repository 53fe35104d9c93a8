package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ksato/raggate/internal/cache"
	"github.com/ksato/raggate/internal/retrieval"
	"github.com/ksato/raggate/internal/service"
)

// fakeProcessor is a canned QueryProcessor for handler tests.
type fakeProcessor struct {
	searchResp *service.SearchResponse
	answerResp *service.AnswerResponse
	err        error
	healthy    bool
	flushed    int
}

func (f *fakeProcessor) ProcessSearch(context.Context, string, string, int) (*service.SearchResponse, error) {
	return f.searchResp, f.err
}

func (f *fakeProcessor) ProcessLLMQuery(context.Context, string, string, int) (*service.AnswerResponse, error) {
	return f.answerResp, f.err
}

func (f *fakeProcessor) Healthy(context.Context) bool { return f.healthy }
func (f *fakeProcessor) CacheStats() cache.Stats      { return cache.Stats{Count: 7} }
func (f *fakeProcessor) FlushCache() int              { return f.flushed }

func newTestServer(p QueryProcessor) *HTTPServer {
	return NewHTTPServer(HTTPServerConfig{Port: 0, AdminAPIKey: "admin"}, p)
}

func doJSON(t *testing.T, srv *HTTPServer, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestSearch_OK(t *testing.T) {
	srv := newTestServer(&fakeProcessor{
		searchResp: &service.SearchResponse{Query: "install api", TotalResults: 2},
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"install api","top_k":3}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp service.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("unexpected total_results: %d", resp.TotalResults)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	srv := newTestServer(&fakeProcessor{})

	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `{}`} {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestSearch_OverlongQueryRejected(t *testing.T) {
	srv := newTestServer(&fakeProcessor{})

	long := strings.Repeat("x", maxQueryLength+1)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"`+long+`"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for overlong query, got %d", rec.Code)
	}
}

func TestSearch_InvalidJSON(t *testing.T) {
	srv := newTestServer(&fakeProcessor{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestSearch_BackendUnavailableMapsTo503(t *testing.T) {
	srv := newTestServer(&fakeProcessor{err: retrieval.ErrUnavailable})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"install api"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSearch_BackendErrorMapsTo502(t *testing.T) {
	srv := newTestServer(&fakeProcessor{
		err: &retrieval.BackendError{StatusCode: 500, Message: "index corrupt"},
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"install api"}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestQuery_OK(t *testing.T) {
	srv := newTestServer(&fakeProcessor{
		answerResp: &service.AnswerResponse{
			SearchResponse: service.SearchResponse{Query: "q", TotalResults: 1},
			Answer:         "the answer",
		},
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/query", `{"query":"how do I install"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp service.AnswerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "the answer" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(&fakeProcessor{healthy: true})
	rec := doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 when backend healthy, got %d", rec.Code)
	}

	srv = newTestServer(&fakeProcessor{healthy: false})
	rec = doJSON(t, srv, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when backend unreachable, got %d", rec.Code)
	}
}

func TestAPIKeyEnforcedOnQueryRoutes(t *testing.T) {
	srv := NewHTTPServer(HTTPServerConfig{APIKey: "secret"}, &fakeProcessor{
		searchResp: &service.SearchResponse{},
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"install"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/search", `{"query":"install"}`,
		map[string]string{"X-API-Key": "secret"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", rec.Code)
	}
}

func TestCacheAdminRoutes(t *testing.T) {
	srv := newTestServer(&fakeProcessor{flushed: 4})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/cache/stats", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without admin key, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/cache/stats", "",
		map[string]string{"X-API-Key": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with admin key, got %d", rec.Code)
	}
	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Count != 7 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/cache", "",
		map[string]string{"X-API-Key": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for flush, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "4") {
		t.Errorf("expected entries_removed 4, body: %s", rec.Body.String())
	}
}
