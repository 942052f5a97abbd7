// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"github-activity-service/internal/config"
	"github-activity-service/internal/database"
	custom_errors "github-activity-service/internal/errors"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/model"
	"github-activity-service/internal/syncer"
)

const readTimeout = 60 * time.Second

// Syncer runs one sync for a username.
type Syncer interface {
	Sync(ctx context.Context, username string) (syncer.Result, error)
}

// GithubClient is the upstream lookup used by the read routes.
type GithubClient interface {
	GetUser(ctx context.Context, username string) (*model.User, error)
	ListUserRepos(ctx context.Context, username string) ([]model.Repository, error)
}

// Deps are the collaborators of the router. Enabled selects which route
// groups are mounted; nil mounts all of them.
type Deps struct {
	DB           database.Querier
	Github       GithubClient
	Commits      Syncer
	PullRequests Syncer
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Enabled      func(service string) bool
	SyncTimeout  time.Duration
	// BaseContext cancels running syncs when done, typically on shutdown.
	BaseContext context.Context
}

// Handler is the container for API dependencies.
type Handler struct {
	db           database.Querier
	github       GithubClient
	commits      Syncer
	pullRequests Syncer
	logger       *slog.Logger
	syncTimeout  time.Duration
	baseCtx      context.Context
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		db:           d.DB,
		github:       d.Github,
		commits:      d.Commits,
		pullRequests: d.PullRequests,
		logger:       d.Logger,
		syncTimeout:  d.SyncTimeout,
		baseCtx:      d.BaseContext,
	}
	if h.baseCtx == nil {
		h.baseCtx = context.Background()
	}

	enabled := d.Enabled
	if enabled == nil {
		enabled = func(string) bool { return true }
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/health", h.healthCheck)

	// Sync routes run for as long as SYNC_TIMEOUT allows, so only the read
	// routes sit behind the request timeout.
	if enabled(config.ServiceUsers) {
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.Timeout(readTimeout))
			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Get("/{username}", h.getUser)
		})
	}
	if enabled(config.ServiceRepos) {
		r.Route("/repos", func(r chi.Router) {
			r.Use(middleware.Timeout(readTimeout))
			r.Get("/{username}", h.fetchRepos)
			r.Get("/{username}/stored", h.listStoredRepos)
		})
	}
	if enabled(config.ServiceCommits) && h.commits != nil {
		r.Route("/commits", func(r chi.Router) {
			r.Post("/sync/{username}", h.syncCommits)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(readTimeout))
				r.Get("/{username}", h.listCommits)
				r.Get("/{username}/total", h.totalCommits)
				r.Get("/{username}/activity", h.commitActivity)
			})
		})
	}
	if enabled(config.ServicePRs) && h.pullRequests != nil {
		r.Route("/prs", func(r chi.Router) {
			r.Post("/sync/{username}", h.syncPullRequests)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(readTimeout))
				r.Get("/{username}", h.listPullRequests)
				r.Get("/{username}/total", h.totalPullRequests)
				r.Get("/{username}/repo/{repoId}/total", h.totalRepoPullRequests)
			})
		})
	}

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveUser returns the stored user, creating it from GitHub on first use.
func (h *Handler) resolveUser(ctx context.Context, username string) (database.User, error) {
	user, err := h.db.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return database.User{}, err
	case h.github == nil:
		return database.User{}, custom_errors.ErrUserNotFound
	}

	h.logger.Info("User not stored, fetching from GitHub", "username", username)
	ghUser, err := h.github.GetUser(ctx, username)
	if err != nil {
		return database.User{}, err
	}
	return h.db.UpsertUser(ctx, syncer.UserParams(ghUser))
}

// respondWithLookupError maps a resolveUser failure to a response.
func (h *Handler) respondWithLookupError(w http.ResponseWriter, username string, err error) {
	if errors.Is(err, custom_errors.ErrUserNotFound) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	h.logger.Error("Failed to resolve user", "username", username, "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}
