package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const userColumns = `github_id, username, name, email, avatar_url, bio, db_created_at, db_updated_at`

const createUser = `
INSERT INTO users (github_id, username, name, email, avatar_url, bio)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	GithubID  string
	Username  string
	Name      string
	Email     *string
	AvatarUrl string
	Bio       string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.GithubID,
		arg.Username,
		arg.Name,
		arg.Email,
		arg.AvatarUrl,
		arg.Bio,
	)
	var i User
	err := row.Scan(
		&i.GithubID,
		&i.Username,
		&i.Name,
		&i.Email,
		&i.AvatarUrl,
		&i.Bio,
		&i.DbCreatedAt,
		&i.DbUpdatedAt,
	)
	return i, err
}

// releaseUsername moves a login that GitHub has reassigned off the stale
// row. The placeholder cannot collide with a real login.
const releaseUsername = `
UPDATE users SET username = '~' || github_id, db_updated_at = NOW()
WHERE username = $1 AND github_id <> $2`

const upsertUser = `
INSERT INTO users (github_id, username, name, email, avatar_url, bio)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (github_id) DO UPDATE SET
    username      = EXCLUDED.username,
    name          = EXCLUDED.name,
    email         = EXCLUDED.email,
    avatar_url    = EXCLUDED.avatar_url,
    bio           = EXCLUDED.bio,
    db_updated_at = NOW()
RETURNING ` + userColumns

type UpsertUserParams struct {
	GithubID  string
	Username  string
	Name      string
	Email     *string
	AvatarUrl string
	Bio       string
}

// UpsertUser frees the login from any stale row and upserts by github id,
// both in one implicit transaction.
func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	batch := &pgx.Batch{}
	batch.Queue(releaseUsername, arg.Username, arg.GithubID)
	batch.Queue(upsertUser,
		arg.GithubID,
		arg.Username,
		arg.Name,
		arg.Email,
		arg.AvatarUrl,
		arg.Bio,
	)
	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	if _, err := br.Exec(); err != nil {
		return User{}, err
	}
	var i User
	err := br.QueryRow().Scan(
		&i.GithubID,
		&i.Username,
		&i.Name,
		&i.Email,
		&i.AvatarUrl,
		&i.Bio,
		&i.DbCreatedAt,
		&i.DbUpdatedAt,
	)
	return i, err
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.GithubID,
		&i.Username,
		&i.Name,
		&i.Email,
		&i.AvatarUrl,
		&i.Bio,
		&i.DbCreatedAt,
		&i.DbUpdatedAt,
	)
	return i, err
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY username`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.GithubID,
			&i.Username,
			&i.Name,
			&i.Email,
			&i.AvatarUrl,
			&i.Bio,
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
