// Package server sets up and manages the console's HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/opsdeck/console/internal/auth"
	"github.com/opsdeck/console/internal/compose"
	"github.com/opsdeck/console/internal/config"
	"github.com/opsdeck/console/internal/dash"
	"github.com/opsdeck/console/internal/deploy"
	"github.com/opsdeck/console/internal/github"
	"github.com/opsdeck/console/internal/router"
	"github.com/opsdeck/console/internal/stats"
)

// Server represents the console with all its dependencies.
type Server struct {
	reloader   *config.Reloader
	httpServer *http.Server
	sampler    *stats.Sampler
	sessions   *auth.SessionManager
	status     *compose.StatusClient
	tlsCert    string
	tlsKey     string
}

// New creates a Server instance with all dependencies initialized.
func New(reloader *config.Reloader) (*Server, error) {
	cfg := reloader.GetConfig()

	templatesDir := os.Getenv("TEMPLATES_DIR")
	if templatesDir == "" {
		templatesDir = "web/templates"
	}
	if err := dash.InitTemplates(templatesDir); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	store, err := stats.NewStore(cfg.StatsFile, cfg.StatsMaxSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %w", err)
	}
	sampler := stats.NewSampler(store, cfg.StatsInterval)

	useTLS := fileExists(cfg.TLSCertFile) && fileExists(cfg.TLSKeyFile)
	sessions := auth.NewSessionManager(cfg.SessionTTL, useTLS)

	// The client reads the token through the reloader, so a rotated
	// GITHUB_TOKEN_FILE takes effect without a restart.
	ghClient := github.NewClient(func() string {
		return reloader.GetConfig().GitHubToken
	})
	repoCache := github.NewCache(ghClient, cfg.RepoCacheFile, cfg.RepoCacheTTL)
	reloader.OnChange(func(old, new *config.Config) {
		if old.GitHubToken != new.GitHubToken {
			if err := repoCache.Invalidate(); err != nil {
				slog.Error("failed to invalidate repository cache after token rotation", "err", err)
			}
		}
	})

	orchestrator := deploy.NewOrchestrator(
		deploy.NewRunner(),
		deploy.NewResolver(cfg.DeployRoot, cfg.GitHubToken),
		cfg.LogTail,
	)

	status, err := compose.NewStatusClient()
	if err != nil {
		slog.Warn("docker unavailable, container status disabled", "err", err)
		status = nil
	}

	handlers := dash.NewHandlers(reloader, sessions, repoCache, orchestrator, status, store)
	handler := router.New(&router.Dependencies{
		Handlers:       handlers,
		Sessions:       sessions,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		// No WriteTimeout: action transcripts and log streams stay open
		// for as long as the client listens.
		IdleTimeout: cfg.IdleTimeout,
	}

	return &Server{
		reloader:   reloader,
		httpServer: httpServer,
		sampler:    sampler,
		sessions:   sessions,
		status:     status,
		tlsCert:    cfg.TLSCertFile,
		tlsKey:     cfg.TLSKeyFile,
	}, nil
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	if err := s.reloader.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start config reloader: %w", err)
	}

	s.sampler.Start()

	if fileExists(s.tlsCert) && fileExists(s.tlsKey) {
		slog.Info("starting opsdeck console", "addr", s.httpServer.Addr, "tls", true)
		return s.httpServer.ListenAndServeTLS(s.tlsCert, s.tlsKey)
	}
	slog.Warn("TLS certificate or key not found, serving plain HTTP",
		"cert", s.tlsCert, "key", s.tlsKey)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("starting graceful shutdown")

	if err := s.reloader.Stop(); err != nil {
		slog.Error("error stopping config reloader", "error", err)
	}

	s.sampler.Stop()
	slog.Info("stats sampler stopped")

	s.sessions.Stop()

	if s.status != nil {
		if err := s.status.Close(); err != nil {
			slog.Error("error closing docker client", "error", err)
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		return fmt.Errorf("could not stop server gracefully: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
