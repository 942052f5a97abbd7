package database

import (
	"context"
)

type Querier interface {
	CountCommitsByAuthor(ctx context.Context, authorID string) (int64, error)
	CountCommitsByMonth(ctx context.Context, authorID string) ([]CountCommitsByMonthRow, error)
	CountPullRequestsByAuthor(ctx context.Context, authorID string) (int64, error)
	CountPullRequestsByRepository(ctx context.Context, repositoryID string) (int64, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListCommitsByAuthor(ctx context.Context, arg ListCommitsByAuthorParams) ([]Commit, error)
	ListPullRequestsByAuthor(ctx context.Context, arg ListPullRequestsByAuthorParams) ([]PullRequest, error)
	ListRepositoriesByOwner(ctx context.Context, owner string) ([]Repository, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpsertCommit(ctx context.Context, arg UpsertCommitParams) error
	UpsertPullRequests(ctx context.Context, arg []UpsertPullRequestParams) (int64, error)
	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (Repository, error)
	UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error)
}

var _ Querier = (*Queries)(nil)
