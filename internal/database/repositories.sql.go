package database

import (
	"context"
	"time"
)

const repositoryColumns = `github_id, owner, name, full_name, description, url, language, forks_count, stars_count, repo_updated_at, db_created_at, db_updated_at`

const upsertRepository = `
INSERT INTO repositories (github_id, owner, name, full_name, description, url, language, forks_count, stars_count, repo_updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (github_id) DO UPDATE SET
    owner           = EXCLUDED.owner,
    name            = EXCLUDED.name,
    full_name       = EXCLUDED.full_name,
    description     = EXCLUDED.description,
    url             = EXCLUDED.url,
    language        = EXCLUDED.language,
    forks_count     = EXCLUDED.forks_count,
    stars_count     = EXCLUDED.stars_count,
    repo_updated_at = EXCLUDED.repo_updated_at,
    db_updated_at   = NOW()
RETURNING ` + repositoryColumns

type UpsertRepositoryParams struct {
	GithubID      string
	Owner         string
	Name          string
	FullName      string
	Description   *string
	Url           string
	Language      *string
	ForksCount    int32
	StarsCount    int32
	RepoUpdatedAt *time.Time
}

func (q *Queries) UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (Repository, error) {
	row := q.db.QueryRow(ctx, upsertRepository,
		arg.GithubID,
		arg.Owner,
		arg.Name,
		arg.FullName,
		arg.Description,
		arg.Url,
		arg.Language,
		arg.ForksCount,
		arg.StarsCount,
		arg.RepoUpdatedAt,
	)
	var i Repository
	err := row.Scan(
		&i.GithubID,
		&i.Owner,
		&i.Name,
		&i.FullName,
		&i.Description,
		&i.Url,
		&i.Language,
		&i.ForksCount,
		&i.StarsCount,
		&i.RepoUpdatedAt,
		&i.DbCreatedAt,
		&i.DbUpdatedAt,
	)
	return i, err
}

const listRepositoriesByOwner = `SELECT ` + repositoryColumns + ` FROM repositories WHERE lower(owner) = lower($1) ORDER BY name`

func (q *Queries) ListRepositoriesByOwner(ctx context.Context, owner string) ([]Repository, error) {
	rows, err := q.db.Query(ctx, listRepositoriesByOwner, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Repository{}
	for rows.Next() {
		var i Repository
		if err := rows.Scan(
			&i.GithubID,
			&i.Owner,
			&i.Name,
			&i.FullName,
			&i.Description,
			&i.Url,
			&i.Language,
			&i.ForksCount,
			&i.StarsCount,
			&i.RepoUpdatedAt,
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
