// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github-activity-service/internal/database"
	custom_errors "github-activity-service/internal/errors"
	"github-activity-service/internal/guard"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/model"
	"github-activity-service/internal/paginate"
)

// Fetcher is the upstream side of a sync; *github.Client satisfies it.
type Fetcher interface {
	GetUser(ctx context.Context, username string) (*model.User, error)
	ListUserRepos(ctx context.Context, username string) ([]model.Repository, error)
	WalkCommits(ctx context.Context, repo model.Repository, author string, visit paginate.VisitFunc[model.Commit]) (paginate.Result, error)
	WalkPullRequests(ctx context.Context, repo model.Repository, visit paginate.VisitFunc[model.PullRequest]) (paginate.Result, error)
}

// Store is the subset of database.Querier a sync writes through.
type Store interface {
	UpsertUser(ctx context.Context, arg database.UpsertUserParams) (database.User, error)
	UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error)
	UpsertCommit(ctx context.Context, arg database.UpsertCommitParams) error
	UpsertPullRequests(ctx context.Context, arg []database.UpsertPullRequestParams) (int64, error)
}

// Result describes a finished sync run.
type Result struct {
	SyncID   string `json:"syncId"`
	Username string `json:"username"`
	// Records is the number of records written.
	Records int `json:"records"`
	Repos   int `json:"repos"`
	// Abandoned counts repositories whose walk stopped before the last page.
	Abandoned int `json:"abandoned"`
}

// base holds what both syncers share: lease handling, run ids and the
// user/repository preparation step.
type base struct {
	kind    string
	fetcher Fetcher
	store   Store
	guard   guard.Guard
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// run acquires the guard for username, executes body and releases the guard
// whatever body returns.
func (b *base) run(ctx context.Context, username string, body func(ctx context.Context, logger *slog.Logger, res *Result) error) (Result, error) {
	release, err := b.guard.Acquire(ctx, username)
	if err != nil {
		if errors.Is(err, custom_errors.ErrSyncInProgress) {
			b.metrics.SyncRejected(b.kind)
		}
		return Result{}, err
	}
	defer release()

	res := Result{SyncID: uuid.NewString(), Username: username}
	logger := b.logger.With("kind", b.kind, "username", username, "sync_id", res.SyncID)
	logger.Info("Sync started")

	done := b.metrics.SyncStarted(b.kind)
	err = body(ctx, logger, &res)
	done(res.Records, err)

	if err != nil {
		logger.Error("Sync failed", "records", res.Records, "error", err)
		return res, err
	}
	logger.Info("Sync finished", "records", res.Records, "repos", res.Repos, "abandoned", res.Abandoned)
	return res, nil
}

// prepare fetches and stores the user and all of their repositories.
func (b *base) prepare(ctx context.Context, logger *slog.Logger, username string) (database.User, []model.Repository, error) {
	ghUser, err := b.fetcher.GetUser(ctx, username)
	if err != nil {
		return database.User{}, nil, fmt.Errorf("fetching user %s: %w", username, err)
	}
	user, err := b.store.UpsertUser(ctx, UserParams(ghUser))
	if err != nil {
		return database.User{}, nil, fmt.Errorf("storing user %s: %w", username, err)
	}

	repos, err := b.fetcher.ListUserRepos(ctx, username)
	if err != nil {
		return database.User{}, nil, fmt.Errorf("listing repositories of %s: %w", username, err)
	}
	for _, repo := range repos {
		if _, err := b.store.UpsertRepository(ctx, RepositoryParams(repo)); err != nil {
			return database.User{}, nil, fmt.Errorf("storing repository %s: %w", repo.FullName, err)
		}
	}
	logger.Info("Fetched repositories", "count", len(repos))
	return user, repos, nil
}

// classifyWalk decides whether a walk error ends the whole sync. Upstream
// failures on a single repository only abandon that repository.
func classifyWalk(logger *slog.Logger, repo model.Repository, res paginate.Result, err error) (abandoned bool, fatal error) {
	if err == nil {
		return false, nil
	}
	var fetchErr *paginate.FetchError
	if errors.As(err, &fetchErr) {
		logger.Warn("Abandoned repository walk, keeping fetched pages",
			"repo", repo.FullName, "page", fetchErr.Page, "pages", res.Pages, "error", fetchErr.Err)
		return true, nil
	}
	return false, err
}

// UserParams maps an upstream profile to its upsert row.
func UserParams(u *model.User) database.UpsertUserParams {
	return database.UpsertUserParams{
		GithubID:  u.GithubID,
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		AvatarUrl: u.AvatarURL,
		Bio:       u.Bio,
	}
}

// RepositoryParams maps an upstream repository to its upsert row.
func RepositoryParams(r model.Repository) database.UpsertRepositoryParams {
	var updatedAt *time.Time
	if !r.RepoUpdatedAt.IsZero() {
		t := r.RepoUpdatedAt
		updatedAt = &t
	}
	return database.UpsertRepositoryParams{
		GithubID:      r.GithubID,
		Owner:         r.Owner,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		Url:           r.URL,
		Language:      r.Language,
		ForksCount:    int32(r.ForksCount),
		StarsCount:    int32(r.StarsCount),
		RepoUpdatedAt: updatedAt,
	}
}
