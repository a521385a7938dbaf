package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsdeck/console/internal/auth"
	"github.com/opsdeck/console/internal/config"
	"github.com/opsdeck/console/internal/dash"
	"github.com/opsdeck/console/internal/deploy"
	"github.com/opsdeck/console/internal/github"
	"github.com/opsdeck/console/internal/stats"
)

func testDependencies(t *testing.T) *Dependencies {
	t.Helper()

	dir := t.TempDir()
	reloader, err := config.NewReloader(&config.Config{
		DeployRoot:  dir,
		GitHubToken: "test-token",
		LogTail:     100,
	})
	if err != nil {
		t.Fatalf("Failed to create reloader: %v", err)
	}

	store, err := stats.NewStore(filepath.Join(dir, "stats.log"), 10)
	if err != nil {
		t.Fatalf("Failed to create stats store: %v", err)
	}

	sessions := auth.NewSessionManager(time.Hour, false)
	t.Cleanup(sessions.Stop)
	repoCache := github.NewCache(
		github.NewClient(func() string { return "test-token" }),
		filepath.Join(dir, "repo_cache.json"),
		time.Minute,
	)
	orch := deploy.NewOrchestrator(deploy.NewRunner(), deploy.NewResolver(dir, "test-token"), 100)
	handlers := dash.NewHandlers(reloader, sessions, repoCache, orch, nil, store)

	return &Dependencies{
		Handlers: handlers,
		Sessions: sessions,
	}
}

// TestNew tests the New function to ensure it returns a non-nil HTTP handler.
func TestNew(t *testing.T) {
	handler := New(testDependencies(t))
	if handler == nil {
		t.Fatal("New() returned nil handler")
	}
}

// TestHealthEndpoint tests the /health endpoint to ensure it returns HTTP 200 OK and the expected body.
func TestHealthEndpoint(t *testing.T) {
	handler := New(testDependencies(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if body := w.Body.String(); body != "OK" {
		t.Errorf("Expected body 'OK', got %q", body)
	}
}

// TestVersionEndpoint tests the /version endpoint to ensure it returns HTTP 200 OK and the correct Content-Type.
func TestVersionEndpoint(t *testing.T) {
	handler := New(testDependencies(t))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", contentType)
	}

	if w.Body.String() == "" {
		t.Error("Expected non-empty version response")
	}
}

// TestUnauthenticatedPageRedirectsToLogin ensures browser pages bounce to
// the login form without a session.
func TestUnauthenticatedPageRedirectsToLogin(t *testing.T) {
	handler := New(testDependencies(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Errorf("Expected status 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Expected redirect to /login, got %q", loc)
	}
}

// TestUnauthenticatedAPIReturns401 ensures API and stream routes get a bare
// 401 instead of a redirect.
func TestUnauthenticatedAPIReturns401(t *testing.T) {
	handler := New(testDependencies(t))

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/containers"},
		{http.MethodGet, "/api/system_stats"},
		{http.MethodPost, "/run_action/deploy"},
		{http.MethodPost, "/api/container_action/web/restart"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401, got %d", target.method, target.path, w.Code)
		}
	}
}

// TestRequestIDHeader ensures every response carries an X-Request-ID.
func TestRequestIDHeader(t *testing.T) {
	handler := New(testDependencies(t))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}

	req = httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w = httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("Expected upstream request ID to be kept, got %q", got)
	}
}
