package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github-activity-service/internal/config"
	"github-activity-service/internal/database"
	"github-activity-service/internal/github"
	"github-activity-service/internal/guard"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/syncer"
)

// app wires the components shared by serve and sync.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	pool         *pgxpool.Pool
	queries      *database.Queries
	metrics      *metrics.Metrics
	github       *github.Client
	commits      *syncer.CommitSyncer
	pullRequests *syncer.PullRequestSyncer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	pool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	logger.Info("Database connection established")

	m := metrics.New()
	ghClient, err := github.NewClient(cfg.GithubToken, logger, github.Settings{
		BaseURL:                 cfg.GithubBaseURL,
		RequestTimeout:          cfg.GithubRequestTimeout,
		SecondaryRateLimitSleep: cfg.SecondaryRateLimitSleep,
		PerPage:                 cfg.PerPage,
		MaxPages:                cfg.MaxPages,
		RepoPageDelay:           cfg.RepoPageDelay,
		CommitPageDelay:         cfg.CommitPageDelay,
		PRPageDelay:             cfg.PRPageDelay,
		RetryInitialInterval:    cfg.RetryInitialInterval,
		RetryMaxInterval:        cfg.RetryMaxInterval,
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		OnRetry:                 m.GithubRetry,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	if cfg.GithubToken == "" {
		logger.Warn("GITHUB_TOKEN not set, using unauthenticated GitHub client")
	}

	queries := database.New(pool)
	commitGuard, prGuard := newGuards(cfg, pool, logger)
	logger.Info("Sync guard selected", "guard", cfg.SyncGuard)

	return &app{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		queries:      queries,
		metrics:      m,
		github:       ghClient,
		commits:      syncer.NewCommitSyncer(ghClient, queries, commitGuard, m, logger, cfg.SyncConcurrency, cfg.UpsertConcurrency),
		pullRequests: syncer.NewPullRequestSyncer(ghClient, queries, prGuard, m, logger),
	}, nil
}

// newGuards returns the commit and pull request guards. Both kinds of sync
// may run for the same user at once, so each gets its own lease space.
func newGuards(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (commits, pullRequests guard.Guard) {
	if cfg.SyncGuard == config.GuardPostgres {
		return guard.NewAdvisory(pool, guard.NamespaceCommits, logger),
			guard.NewAdvisory(pool, guard.NamespacePullRequests, logger)
	}
	return guard.NewMemory(), guard.NewMemory()
}

func (a *app) close() {
	a.pool.Close()
}
