package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github-activity-service/internal/database"
	"github-activity-service/internal/guard"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/model"
)

// PullRequestSyncer mirrors the pull requests a user opened in their own
// repositories.
type PullRequestSyncer struct {
	base
}

func NewPullRequestSyncer(fetcher Fetcher, store Store, g guard.Guard, m *metrics.Metrics, logger *slog.Logger) *PullRequestSyncer {
	return &PullRequestSyncer{
		base: base{
			kind:    metrics.KindPullRequests,
			fetcher: fetcher,
			store:   store,
			guard:   g,
			metrics: m,
			logger:  logger,
		},
	}
}

// Sync walks the pull requests of each repository in turn, keeps those
// opened by username and writes each page in one batch.
func (s *PullRequestSyncer) Sync(ctx context.Context, username string) (Result, error) {
	return s.run(ctx, username, func(ctx context.Context, logger *slog.Logger, res *Result) error {
		user, repos, err := s.prepare(ctx, logger, username)
		if err != nil {
			return err
		}
		res.Repos = len(repos)

		for _, repo := range repos {
			walkRes, err := s.fetcher.WalkPullRequests(ctx, repo, func(ctx context.Context, prs []model.PullRequest) error {
				rows := make([]database.UpsertPullRequestParams, 0, len(prs))
				for _, pr := range prs {
					if pr.AuthorID != user.GithubID {
						continue
					}
					rows = append(rows, PullRequestParams(pr))
				}
				if _, err := s.store.UpsertPullRequests(ctx, rows); err != nil {
					return fmt.Errorf("storing pull requests of %s: %w", repo.FullName, err)
				}
				res.Records += len(rows)
				return nil
			})
			gaveUp, err := classifyWalk(logger, repo, walkRes, err)
			if err != nil {
				return err
			}
			if gaveUp {
				res.Abandoned++
			}
		}
		return nil
	})
}

// PullRequestParams maps a fetched pull request to its upsert row.
func PullRequestParams(pr model.PullRequest) database.UpsertPullRequestParams {
	return database.UpsertPullRequestParams{
		GithubID:     pr.GithubID,
		Number:       int32(pr.Number),
		RepositoryID: pr.RepositoryID,
		AuthorID:     pr.AuthorID,
		Title:        pr.Title,
		State:        string(pr.State),
		PrCreatedAt:  pr.CreatedAt,
		PrUpdatedAt:  pr.UpdatedAt,
		ClosedAt:     pr.ClosedAt,
	}
}
