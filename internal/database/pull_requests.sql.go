package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const upsertPullRequest = `
INSERT INTO pull_requests (github_id, number, repository_id, author_id, title, state, pr_created_at, pr_updated_at, closed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (github_id) DO UPDATE SET
    number        = EXCLUDED.number,
    repository_id = EXCLUDED.repository_id,
    author_id     = EXCLUDED.author_id,
    title         = EXCLUDED.title,
    state         = EXCLUDED.state,
    pr_created_at = EXCLUDED.pr_created_at,
    pr_updated_at = EXCLUDED.pr_updated_at,
    closed_at     = EXCLUDED.closed_at,
    db_updated_at = NOW()
`

type UpsertPullRequestParams struct {
	GithubID     string
	Number       int32
	RepositoryID string
	AuthorID     string
	Title        string
	State        string
	PrCreatedAt  time.Time
	PrUpdatedAt  *time.Time
	ClosedAt     *time.Time
}

// UpsertPullRequests writes all rows in one batch round trip and returns the
// number of rows written.
func (q *Queries) UpsertPullRequests(ctx context.Context, arg []UpsertPullRequestParams) (int64, error) {
	if len(arg) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range arg {
		batch.Queue(upsertPullRequest,
			a.GithubID,
			a.Number,
			a.RepositoryID,
			a.AuthorID,
			a.Title,
			a.State,
			a.PrCreatedAt,
			a.PrUpdatedAt,
			a.ClosedAt,
		)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	var n int64
	for range arg {
		ct, err := br.Exec()
		if err != nil {
			return n, err
		}
		n += ct.RowsAffected()
	}
	return n, nil
}

const listPullRequestsByAuthor = `
SELECT github_id, number, repository_id, author_id, title, state, pr_created_at, pr_updated_at, closed_at, db_created_at, db_updated_at
FROM pull_requests
WHERE author_id = $1
ORDER BY pr_created_at DESC, github_id
LIMIT $2 OFFSET $3
`

type ListPullRequestsByAuthorParams struct {
	AuthorID string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListPullRequestsByAuthor(ctx context.Context, arg ListPullRequestsByAuthorParams) ([]PullRequest, error) {
	rows, err := q.db.Query(ctx, listPullRequestsByAuthor, arg.AuthorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PullRequest{}
	for rows.Next() {
		var i PullRequest
		if err := rows.Scan(
			&i.GithubID,
			&i.Number,
			&i.RepositoryID,
			&i.AuthorID,
			&i.Title,
			&i.State,
			&i.PrCreatedAt,
			&i.PrUpdatedAt,
			&i.ClosedAt,
			&i.DbCreatedAt,
			&i.DbUpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countPullRequestsByAuthor = `SELECT COUNT(*) FROM pull_requests WHERE author_id = $1`

func (q *Queries) CountPullRequestsByAuthor(ctx context.Context, authorID string) (int64, error) {
	row := q.db.QueryRow(ctx, countPullRequestsByAuthor, authorID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countPullRequestsByRepository = `SELECT COUNT(*) FROM pull_requests WHERE repository_id = $1`

func (q *Queries) CountPullRequestsByRepository(ctx context.Context, repositoryID string) (int64, error) {
	row := q.db.QueryRow(ctx, countPullRequestsByRepository, repositoryID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
