package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github-activity-service/internal/database"
	"github-activity-service/internal/guard"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/model"
)

// CommitSyncer mirrors the commits a user authored in their own repositories.
type CommitSyncer struct {
	base
	concurrency       int
	upsertConcurrency int
}

// NewCommitSyncer creates a CommitSyncer that walks up to concurrency
// repositories at once and writes up to upsertConcurrency commits at once.
func NewCommitSyncer(fetcher Fetcher, store Store, g guard.Guard, m *metrics.Metrics, logger *slog.Logger, concurrency, upsertConcurrency int) *CommitSyncer {
	return &CommitSyncer{
		base: base{
			kind:    metrics.KindCommits,
			fetcher: fetcher,
			store:   store,
			guard:   g,
			metrics: m,
			logger:  logger,
		},
		concurrency:       max(concurrency, 1),
		upsertConcurrency: max(upsertConcurrency, 1),
	}
}

// Sync fetches every commit authored by username across the user's
// repositories and upserts them keyed by hash. The upstream author filter is
// trusted; every stored commit is attributed to the synced user.
func (s *CommitSyncer) Sync(ctx context.Context, username string) (Result, error) {
	return s.run(ctx, username, func(ctx context.Context, logger *slog.Logger, res *Result) error {
		user, repos, err := s.prepare(ctx, logger, username)
		if err != nil {
			return err
		}
		res.Repos = len(repos)

		var written, abandoned atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)

		for _, repo := range repos {
			g.Go(func() error {
				walkRes, err := s.fetcher.WalkCommits(gctx, repo, username, func(ctx context.Context, commits []model.Commit) error {
					n, err := s.upsertPage(ctx, user.GithubID, commits)
					written.Add(int64(n))
					return err
				})
				gaveUp, err := classifyWalk(logger, repo, walkRes, err)
				if gaveUp {
					abandoned.Add(1)
				}
				if err == nil {
					logger.Debug("Synced repository commits", "repo", repo.FullName, "pages", walkRes.Pages, "commits", walkRes.Items)
				}
				return err
			})
		}

		err = g.Wait()
		res.Records = int(written.Load())
		res.Abandoned = int(abandoned.Load())
		return err
	})
}

// upsertPage writes one page of commits and returns how many were stored.
func (s *CommitSyncer) upsertPage(ctx context.Context, authorID string, commits []model.Commit) (int, error) {
	var stored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.upsertConcurrency)

	for _, c := range commits {
		g.Go(func() error {
			if err := s.store.UpsertCommit(gctx, CommitParams(c, authorID)); err != nil {
				return fmt.Errorf("storing commit %s: %w", c.SHA, err)
			}
			stored.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(stored.Load()), err
}

// CommitParams maps a fetched commit to its upsert row, attributed to authorID.
func CommitParams(c model.Commit, authorID string) database.UpsertCommitParams {
	return database.UpsertCommitParams{
		Sha:          c.SHA,
		RepositoryID: c.RepositoryID,
		AuthorID:     authorID,
		Message:      c.Message,
		CommitDate:   c.Date,
	}
}
