package database

import (
	"context"
	"time"
)

const upsertCommit = `
INSERT INTO commits (sha, repository_id, author_id, message, commit_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (sha) DO UPDATE SET
    repository_id = EXCLUDED.repository_id,
    author_id     = EXCLUDED.author_id,
    message       = EXCLUDED.message,
    commit_date   = EXCLUDED.commit_date,
    db_updated_at = NOW()
`

type UpsertCommitParams struct {
	Sha          string
	RepositoryID string
	AuthorID     string
	Message      string
	CommitDate   time.Time
}

func (q *Queries) UpsertCommit(ctx context.Context, arg UpsertCommitParams) error {
	_, err := q.db.Exec(ctx, upsertCommit,
		arg.Sha,
		arg.RepositoryID,
		arg.AuthorID,
		arg.Message,
		arg.CommitDate,
	)
	return err
}

const listCommitsByAuthor = `
SELECT sha, repository_id, author_id, message, commit_date, db_created_at, db_updated_at
FROM commits
WHERE author_id = $1
ORDER BY commit_date DESC, sha
LIMIT $2 OFFSET $3
`

type ListCommitsByAuthorParams struct {
	AuthorID string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListCommitsByAuthor(ctx context.Context, arg ListCommitsByAuthorParams) ([]Commit, error) {
	rows, err := q.db.Query(ctx, listCommitsByAuthor, arg.AuthorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Commit{}
	for rows.Next() {
		var i Commit
		if err := rows.Scan(
			&i.Sha,
			&i.RepositoryID,
			&i.AuthorID,
			&i.Message,
			&i.CommitDate,
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

const countCommitsByAuthor = `SELECT COUNT(*) FROM commits WHERE author_id = $1`

func (q *Queries) CountCommitsByAuthor(ctx context.Context, authorID string) (int64, error) {
	row := q.db.QueryRow(ctx, countCommitsByAuthor, authorID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countCommitsByMonth = `
SELECT date_trunc('month', commit_date AT TIME ZONE 'UTC') AS month, COUNT(*) AS commits
FROM commits
WHERE author_id = $1
GROUP BY month
ORDER BY month
`

type CountCommitsByMonthRow struct {
	Month   time.Time
	Commits int64
}

func (q *Queries) CountCommitsByMonth(ctx context.Context, authorID string) ([]CountCommitsByMonthRow, error) {
	rows, err := q.db.Query(ctx, countCommitsByMonth, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountCommitsByMonthRow{}
	for rows.Next() {
		var i CountCommitsByMonthRow
		if err := rows.Scan(&i.Month, &i.Commits); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
