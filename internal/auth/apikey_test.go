package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAPIKey_DisabledWhenEmpty(t *testing.T) {
	handler := RequireAPIKey("")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected open access with no configured key, got %d", rec.Code)
	}
}

func TestRequireAPIKey_Valid(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid key, got %d", rec.Code)
	}
}

func TestRequireAPIKey_BearerFallback(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid bearer token, got %d", rec.Code)
	}
}

func TestRequireAPIKey_MissingAndInvalid(t *testing.T) {
	handler := RequireAPIKey("secret")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing key, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid key, got %d", rec.Code)
	}
}

func TestRequireAdminKey_UnconfiguredIsClosed(t *testing.T) {
	handler := RequireAdminKey("")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with no admin key configured, got %d", rec.Code)
	}
}

func TestRequireAdminKey_Valid(t *testing.T) {
	handler := RequireAdminKey("admin-secret")(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	req.Header.Set(APIKeyHeader, "admin-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid admin key, got %d", rec.Code)
	}
}
