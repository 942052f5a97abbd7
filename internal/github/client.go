// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-activity-service/internal/errors"
	"github-activity-service/internal/model"
	"github-activity-service/internal/paginate"
)

// Resource labels passed to Settings.OnRetry.
const (
	ResourceUsers        = "users"
	ResourceRepos        = "repos"
	ResourceCommits      = "commits"
	ResourcePullRequests = "prs"
)

// Settings controls paging, pacing and retries of upstream calls.
type Settings struct {
	BaseURL                 string
	RequestTimeout          time.Duration
	SecondaryRateLimitSleep time.Duration

	PerPage         int
	MaxPages        int
	RepoPageDelay   time.Duration
	CommitPageDelay time.Duration
	PRPageDelay     time.Duration

	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMaxAttempts     int

	// OnRetry is called with the resource label before every retry wait.
	OnRetry func(resource string, err error)
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh       *github.Client
	logger   *slog.Logger
	settings Settings
}

// NewClient creates and configures a new Client instance. An empty token
// yields an unauthenticated client.
func NewClient(token string, logger *slog.Logger, settings Settings) (*Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(settings.SecondaryRateLimitSleep, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = rateLimitWaiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}

	gh := github.NewClient(&http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	})
	if settings.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(settings.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		gh.BaseURL = baseURL
	}

	return &Client{
		gh:       gh,
		logger:   logger,
		settings: settings,
	}, nil
}

// GetUser fetches a user profile. An unknown login yields ErrUserNotFound.
func (c *Client) GetUser(ctx context.Context, username string) (*model.User, error) {
	user, err := paginate.Do(ctx, c.retryPolicy(ResourceUsers, paginate.IsTimeout), c.logger, func(ctx context.Context) (*github.User, error) {
		u, _, err := c.gh.Users.Get(ctx, username)
		return u, err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", custom_errors.ErrUserNotFound, username)
		}
		return nil, err
	}
	return toInternalUser(user), nil
}

// ListUserRepos fetches every public repository owned by username.
func (c *Client) ListUserRepos(ctx context.Context, username string) ([]model.Repository, error) {
	w := c.walker(ResourceRepos, c.settings.RepoPageDelay, paginate.IsTimeout)
	w.Logger = c.logger.With("username", username)

	return paginate.Collect(ctx, w, func(ctx context.Context, page, perPage int) ([]model.Repository, error) {
		repos, _, err := c.gh.Repositories.ListByUser(ctx, username, &github.RepositoryListByUserOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil {
			return nil, err
		}
		out := make([]model.Repository, 0, len(repos))
		for _, r := range repos {
			out = append(out, toInternalRepository(r))
		}
		return out, nil
	})
}

// WalkCommits pages through the commits of owner/name filtered upstream by
// author and hands every page to visit. Only timeouts are retried.
func (c *Client) WalkCommits(ctx context.Context, repo model.Repository, author string, visit paginate.VisitFunc[model.Commit]) (paginate.Result, error) {
	w := c.walker(ResourceCommits, c.settings.CommitPageDelay, paginate.IsTimeout)
	w.Logger = c.logger.With("owner", repo.Owner, "repo", repo.Name)

	fetch := func(ctx context.Context, page, perPage int) ([]model.Commit, error) {
		commits, _, err := c.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, &github.CommitsListOptions{
			Author:      author,
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil {
			return nil, err
		}
		out := make([]model.Commit, 0, len(commits))
		for _, commit := range commits {
			out = append(out, toInternalCommit(commit, repo.GithubID))
		}
		return out, nil
	}
	return paginate.Walk(ctx, w, fetch, visit)
}

// WalkPullRequests pages through all pull requests of owner/name in every
// state. Timeouts and rate limiting are retried.
func (c *Client) WalkPullRequests(ctx context.Context, repo model.Repository, visit paginate.VisitFunc[model.PullRequest]) (paginate.Result, error) {
	w := c.walker(ResourcePullRequests, c.settings.PRPageDelay, func(err error) bool {
		return paginate.IsTimeout(err) || IsRateLimited(err)
	})
	w.Logger = c.logger.With("owner", repo.Owner, "repo", repo.Name)

	fetch := func(ctx context.Context, page, perPage int) ([]model.PullRequest, error) {
		prs, _, err := c.gh.PullRequests.List(ctx, repo.Owner, repo.Name, &github.PullRequestListOptions{
			State:       "all",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil {
			return nil, err
		}
		out := make([]model.PullRequest, 0, len(prs))
		for _, pr := range prs {
			out = append(out, toInternalPullRequest(pr, repo.GithubID))
		}
		return out, nil
	}
	return paginate.Walk(ctx, w, fetch, visit)
}

func (c *Client) walker(resource string, delay time.Duration, retryable paginate.Classifier) paginate.Walker {
	return paginate.Walker{
		PerPage:  c.settings.PerPage,
		MaxPages: c.settings.MaxPages,
		Delay:    delay,
		Retry:    c.retryPolicy(resource, retryable),
		Logger:   c.logger,
	}
}

func (c *Client) retryPolicy(resource string, retryable paginate.Classifier) paginate.RetryPolicy {
	p := paginate.RetryPolicy{
		InitialInterval: c.settings.RetryInitialInterval,
		MaxInterval:     c.settings.RetryMaxInterval,
		MaxAttempts:     c.settings.RetryMaxAttempts,
		Retryable:       retryable,
	}
	if c.settings.OnRetry != nil {
		p.OnRetry = func(err error, _ time.Duration) { c.settings.OnRetry(resource, err) }
	}
	return p
}

// IsRateLimited reports whether err is GitHub refusing the request because of
// a primary or secondary rate limit, or a bare 403/429.
func IsRateLimited(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return code == http.StatusForbidden || code == http.StatusTooManyRequests
	}
	return false
}

func isNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}

// toInternalUser translates a github.User into our internal model.User.
func toInternalUser(u *github.User) *model.User {
	name := u.GetName()
	if name == "" {
		name = u.GetLogin()
	}
	bio := u.GetBio()
	if bio == "" {
		bio = "No bio available"
	}
	var email *string
	if e := u.GetEmail(); e != "" {
		email = &e
	}
	return &model.User{
		GithubID:  strconv.FormatInt(u.GetID(), 10),
		Username:  u.GetLogin(),
		Name:      name,
		Email:     email,
		AvatarURL: u.GetAvatarURL(),
		Bio:       bio,
	}
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		GithubID:      strconv.FormatInt(r.GetID(), 10),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		URL:           r.GetHTMLURL(),
		Language:      r.Language,
		ForksCount:    r.GetForksCount(),
		StarsCount:    r.GetStargazersCount(),
		RepoUpdatedAt: r.GetUpdatedAt().Time,
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toInternalCommit(c *github.RepositoryCommit, repoID string) model.Commit {
	var authorID string
	if c.GetAuthor().GetID() != 0 {
		authorID = strconv.FormatInt(c.GetAuthor().GetID(), 10)
	}
	return model.Commit{
		SHA:          c.GetSHA(),
		RepositoryID: repoID,
		AuthorID:     authorID,
		Message:      c.GetCommit().GetMessage(),
		Date:         c.GetCommit().GetAuthor().GetDate().Time,
	}
}

func toInternalPullRequest(pr *github.PullRequest, repoID string) model.PullRequest {
	mergedAt := timePtr(pr.MergedAt)
	return model.PullRequest{
		GithubID:     strconv.FormatInt(pr.GetID(), 10),
		Number:       pr.GetNumber(),
		RepositoryID: repoID,
		AuthorID:     strconv.FormatInt(pr.GetUser().GetID(), 10),
		Title:        pr.GetTitle(),
		State:        model.StateFromUpstream(pr.GetState(), mergedAt),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    timePtr(pr.UpdatedAt),
		ClosedAt:     timePtr(pr.ClosedAt),
	}
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
