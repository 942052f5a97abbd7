package database

import (
	"time"
)

type User struct {
	GithubID    string    `json:"githubId"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Email       *string   `json:"email"`
	AvatarUrl   string    `json:"avatarUrl"`
	Bio         string    `json:"bio"`
	DbCreatedAt time.Time `json:"createdAt"`
	DbUpdatedAt time.Time `json:"updatedAt"`
}

type Repository struct {
	GithubID      string     `json:"githubId"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	FullName      string     `json:"fullName"`
	Description   *string    `json:"description"`
	Url           string     `json:"url"`
	Language      *string    `json:"language"`
	ForksCount    int32      `json:"forksCount"`
	StarsCount    int32      `json:"starsCount"`
	RepoUpdatedAt *time.Time `json:"repoUpdatedAt"`
	DbCreatedAt   time.Time  `json:"-"`
	DbUpdatedAt   time.Time  `json:"-"`
}

type Commit struct {
	Sha          string    `json:"sha"`
	RepositoryID string    `json:"repository"`
	AuthorID     string    `json:"author"`
	Message      string    `json:"message"`
	CommitDate   time.Time `json:"date"`
	DbCreatedAt  time.Time `json:"-"`
	DbUpdatedAt  time.Time `json:"-"`
}

type PullRequest struct {
	GithubID     string     `json:"prId"`
	Number       int32      `json:"number"`
	RepositoryID string     `json:"repository"`
	AuthorID     string     `json:"author"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	PrCreatedAt  time.Time  `json:"createdAt"`
	PrUpdatedAt  *time.Time `json:"updatedAt"`
	ClosedAt     *time.Time `json:"closedAt"`
	DbCreatedAt  time.Time  `json:"-"`
	DbUpdatedAt  time.Time  `json:"-"`
}
