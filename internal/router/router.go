// Package router sets up the HTTP routes and the middleware chain around
// them.
package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/opsdeck/console/internal/auth"
	"github.com/opsdeck/console/internal/dash"
	"github.com/opsdeck/console/internal/middleware"
)

// Dependencies holds everything the routes need.
type Dependencies struct {
	Handlers       *dash.Handlers
	Sessions       *auth.SessionManager
	AllowedOrigins []string
}

// New creates the console's HTTP handler with all routes configured.
func New(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()
	h := deps.Handlers

	// The password gate gets a strict per-IP budget on top of the global
	// limiter.
	loginLimiter := NewRateLimiter(rate.Limit(1), 5)

	mux.Handle("GET /login", http.HandlerFunc(h.HandleLogin))
	mux.Handle("POST /login", loginLimiter.LimitByIP(http.HandlerFunc(h.HandleLogin)))
	mux.HandleFunc("GET /logout", h.HandleLogout)

	mux.HandleFunc("GET /{$}", h.HandleDashboard)
	mux.HandleFunc("GET /cicd", h.HandleDashboard)

	mux.HandleFunc("GET /select_repo", h.HandleSelectRepo)
	mux.HandleFunc("POST /select_repo", h.HandleSelectRepo)
	mux.HandleFunc("POST /refresh_repos", h.HandleRefreshRepos)

	mux.HandleFunc("POST /run_action/{action}", h.HandleRunAction)
	mux.HandleFunc("POST /api/container_action/{service}/{verb}", h.HandleContainerAction)
	mux.HandleFunc("GET /api/containers", h.HandleContainers)
	mux.HandleFunc("GET /api/system_stats", h.HandleSystemStats)

	registerUtilityRoutes(mux)

	globalLimiter := NewRateLimiter(rate.Limit(100), 100)

	var handler http.Handler = mux
	handler = middleware.AccessLogger(handler)
	handler = middleware.RequireSession(deps.Sessions)(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = globalLimiter.LimitByIP(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Cors(handler, deps.AllowedOrigins)

	return handler
}

// registerUtilityRoutes adds health, version, and metrics routes.
func registerUtilityRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /version", handleVersion)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("./web/static"))))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"version":"v1.0.0","app":"opsdeck"}`))
}
