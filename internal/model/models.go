// internal/model/models.go
package model

import (
	"time"
)

// PullRequestState is the lifecycle state stored for a pull request.
type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestMerged PullRequestState = "merged"
	PullRequestClosed PullRequestState = "closed"
)

// User is a GitHub account mirrored into the local store.
type User struct {
	GithubID  string  `json:"githubId"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatarUrl"`
	Bio       string  `json:"bio"`
}

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	GithubID      string
	Owner         string
	Name          string
	FullName      string
	Description   *string
	URL           string
	Language      *string
	ForksCount    int
	StarsCount    int
	RepoUpdatedAt time.Time
}

type Commit struct {
	SHA          string
	RepositoryID string
	AuthorID     string
	Message      string
	Date         time.Time
}

// PullRequest is a pull request as fetched from GitHub. AuthorID is the
// upstream user id of whoever opened it.
type PullRequest struct {
	GithubID     string
	Number       int
	RepositoryID string
	AuthorID     string
	Title        string
	State        PullRequestState
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	ClosedAt     *time.Time
}

// StateFromUpstream maps GitHub's open/closed state plus the merge timestamp
// to the stored lifecycle state.
func StateFromUpstream(state string, mergedAt *time.Time) PullRequestState {
	switch {
	case state == "open":
		return PullRequestOpen
	case mergedAt != nil:
		return PullRequestMerged
	default:
		return PullRequestClosed
	}
}
