package dash

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/opsdeck/console/internal/auth"
	"github.com/opsdeck/console/internal/compose"
	"github.com/opsdeck/console/internal/config"
	"github.com/opsdeck/console/internal/deploy"
	"github.com/opsdeck/console/internal/github"
	"github.com/opsdeck/console/internal/logging"
	"github.com/opsdeck/console/internal/stats"
)

// Handlers carries the dashboard's dependencies. Configuration is read
// through the reloader on every request so rotated secrets take effect
// immediately.
type Handlers struct {
	reloader *config.Reloader
	sessions *auth.SessionManager
	repos    *github.Cache
	orch     *deploy.Orchestrator
	status   *compose.StatusClient
	stats    *stats.Store
}

// NewHandlers wires up the dashboard. status may be nil when no Docker
// daemon is reachable; container listing then degrades to an error
// response while everything else keeps working.
func NewHandlers(
	reloader *config.Reloader,
	sessions *auth.SessionManager,
	repos *github.Cache,
	orch *deploy.Orchestrator,
	status *compose.StatusClient,
	store *stats.Store,
) *Handlers {
	return &Handlers{
		reloader: reloader,
		sessions: sessions,
		repos:    repos,
		orch:     orch,
		status:   status,
		stats:    store,
	}
}

func (h *Handlers) resolver() *deploy.Resolver {
	cfg := h.reloader.GetConfig()
	return deploy.NewResolver(cfg.DeployRoot, cfg.GitHubToken)
}

// HandleLogin renders the password gate and checks submissions.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		RenderTemplate(w, "login.html", LoginPageData{})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	cfg := h.reloader.GetConfig()
	if !auth.VerifyPassword(cfg.AdminPasswordHash, r.PostFormValue("password")) {
		slog.WarnContext(r.Context(), "failed login attempt", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		RenderTemplate(w, "login.html", LoginPageData{Error: "Invalid password"})
		return
	}

	if _, err := h.sessions.Create(w); err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/select_repo", http.StatusSeeOther)
}

// HandleLogout ends the session.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleDashboard renders the deployment dashboard for the selected
// repository.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(r)
	if !ok || sess.SelectedRepo == "" {
		http.Redirect(w, r, "/select_repo", http.StatusSeeOther)
		return
	}

	cfg := h.reloader.GetConfig()
	target, err := h.resolver().Resolve(sess.SelectedRepo, sess.SelectedFullName)
	if err != nil {
		http.Redirect(w, r, "/select_repo", http.StatusSeeOther)
		return
	}

	services, err := compose.Services(target.Dir)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to read compose services", "repo", sess.SelectedRepo, "err", err)
	}

	RenderTemplate(w, "dashboard.html", DashboardPageData{
		SelectedRepo: sess.SelectedRepo,
		Services:     services,
		LogTail:      cfg.LogTail,
	})
}

// HandleSelectRepo lists repositories and records the operator's pick.
func (h *Handlers) HandleSelectRepo(w http.ResponseWriter, r *http.Request) {
	repos, ttl, err := h.repos.Repositories(r.Context())
	notice := ""
	switch {
	case err != nil && repos == nil:
		slog.ErrorContext(r.Context(), "failed to list repositories", "err", err)
		notice = "Could not fetch the repository list from GitHub."
	case errors.Is(err, github.ErrCachePersist):
		// The fetch succeeded; only the cache file write failed.
		slog.WarnContext(r.Context(), "repository cache not persisted", "err", err)
		notice = "Repository list is up to date, but caching it failed; the next load will fetch again."
	case err != nil:
		slog.WarnContext(r.Context(), "serving stale repository list", "err", err)
		notice = "GitHub is unreachable; showing the last cached list."
	case ttl > 0:
		notice = fmt.Sprintf("Repository list refreshes in %d minutes.", int(ttl.Minutes()))
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		name := r.PostFormValue("repo_name")
		full, err := h.repos.Resolve(r.Context(), name)
		if err != nil {
			http.Error(w, "Unknown repository", http.StatusBadRequest)
			return
		}
		if !h.sessions.SelectRepo(r, name, full) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	selected := ""
	if sess, ok := h.sessions.Get(r); ok {
		selected = sess.SelectedRepo
	}
	RenderTemplate(w, "select_repo.html", SelectRepoPageData{
		Repos:        repos,
		SelectedRepo: selected,
		Notice:       notice,
	})
}

// HandleRefreshRepos drops the repository cache.
func (h *Handlers) HandleRefreshRepos(w http.ResponseWriter, r *http.Request) {
	if err := h.repos.Invalidate(); err != nil {
		slog.ErrorContext(r.Context(), "failed to invalidate repository cache", "err", err)
	}
	http.Redirect(w, r, "/select_repo", http.StatusSeeOther)
}

// HandleRunAction starts a repository-level pipeline and streams its
// transcript. Global prune actions run without a selected repository;
// everything else requires one.
func (h *Handlers) HandleRunAction(w http.ResponseWriter, r *http.Request) {
	action := deploy.Action(r.PathValue("action"))
	scope := r.URL.Query().Get("service")
	h.invokeAndStream(w, r, action, scope)
}

// HandleContainerAction starts a pipeline scoped to one compose service.
func (h *Handlers) HandleContainerAction(w http.ResponseWriter, r *http.Request) {
	action, ok := deploy.ContainerAction(r.PathValue("verb"))
	if !ok {
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}
	h.invokeAndStream(w, r, action, r.PathValue("service"))
}

func (h *Handlers) invokeAndStream(w http.ResponseWriter, r *http.Request, action deploy.Action, scope string) {
	ctx := logging.WithAction(r.Context(), string(action))

	var target deploy.Target
	if sess, ok := h.sessions.Get(r); ok && sess.SelectedRepo != "" {
		resolved, err := h.resolver().Resolve(sess.SelectedRepo, sess.SelectedFullName)
		if err != nil {
			// Resolution failures belong on the stream, per the error
			// contract; the action was already accepted at this point.
			slog.WarnContext(ctx, "target resolution failed", "repo", sess.SelectedRepo, "err", err)
			sseError(w, err.Error())
			return
		}
		target = resolved
	}

	stream, err := h.orch.Invoke(ctx, deploy.Request{Action: action, Target: target, Scope: scope})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, deploy.ErrUnknownAction) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	serveStream(w, r, stream)
}

// HandleContainers reports compose container state for the selected
// repository.
func (h *Handlers) HandleContainers(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.Get(r)
	if !ok || sess.SelectedRepo == "" {
		writeJSONError(w, http.StatusBadRequest, "no repository selected")
		return
	}
	if h.status == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "docker is not available")
		return
	}

	target, err := h.resolver().Resolve(sess.SelectedRepo, sess.SelectedFullName)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	containers, err := h.status.Containers(r.Context(), target.Dir)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list containers", "repo", sess.SelectedRepo, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to get container status")
		return
	}
	writeJSON(w, containers)
}

// HandleSystemStats serves the recent host usage samples.
func (h *Handlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats.Recent())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
