package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-activity-service/internal/config"
	"github-activity-service/internal/database"
	custom_errors "github-activity-service/internal/errors"
	"github-activity-service/internal/guard"
	"github-activity-service/internal/metrics"
	"github-activity-service/internal/model"
	"github-activity-service/internal/paginate"
	"github-activity-service/internal/syncer"
)

// MockQuerier is a mock of the database.Querier interface.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) CountCommitsByAuthor(ctx context.Context, authorID string) (int64, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CountCommitsByMonth(ctx context.Context, authorID string) ([]database.CountCommitsByMonthRow, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).([]database.CountCommitsByMonthRow), args.Error(1)
}
func (m *MockQuerier) CountPullRequestsByAuthor(ctx context.Context, authorID string) (int64, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CountPullRequestsByRepository(ctx context.Context, repositoryID string) (int64, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.User), args.Error(1)
}
func (m *MockQuerier) GetUserByUsername(ctx context.Context, username string) (database.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(database.User), args.Error(1)
}
func (m *MockQuerier) ListCommitsByAuthor(ctx context.Context, arg database.ListCommitsByAuthorParams) ([]database.Commit, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.Commit), args.Error(1)
}
func (m *MockQuerier) ListPullRequestsByAuthor(ctx context.Context, arg database.ListPullRequestsByAuthorParams) ([]database.PullRequest, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.PullRequest), args.Error(1)
}
func (m *MockQuerier) ListRepositoriesByOwner(ctx context.Context, owner string) ([]database.Repository, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]database.Repository), args.Error(1)
}
func (m *MockQuerier) ListUsers(ctx context.Context) ([]database.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.User), args.Error(1)
}
func (m *MockQuerier) UpsertCommit(ctx context.Context, arg database.UpsertCommitParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}
func (m *MockQuerier) UpsertPullRequests(ctx context.Context, arg []database.UpsertPullRequestParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockQuerier) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
func (m *MockQuerier) UpsertUser(ctx context.Context, arg database.UpsertUserParams) (database.User, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.User), args.Error(1)
}

// gatedFetcher serves one repository with three commits. When gate is set,
// GetUser signals entered and waits for proceed.
type gatedFetcher struct {
	gate    bool
	entered chan struct{}
	proceed chan struct{}
	userErr error
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gate: true, entered: make(chan struct{}, 1), proceed: make(chan struct{})}
}

func (f *gatedFetcher) GetUser(ctx context.Context, username string) (*model.User, error) {
	if f.gate {
		f.entered <- struct{}{}
		<-f.proceed
	}
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &model.User{GithubID: "42", Username: username, Name: username, Bio: "No bio available"}, nil
}

func (f *gatedFetcher) ListUserRepos(ctx context.Context, username string) ([]model.Repository, error) {
	return []model.Repository{{GithubID: "900", Owner: username, Name: "r1", FullName: username + "/r1"}}, nil
}

func (f *gatedFetcher) WalkCommits(ctx context.Context, repo model.Repository, author string, visit paginate.VisitFunc[model.Commit]) (paginate.Result, error) {
	page := []model.Commit{
		{SHA: "c1", RepositoryID: repo.GithubID, AuthorID: "42"},
		{SHA: "c2", RepositoryID: repo.GithubID, AuthorID: "42"},
		{SHA: "c3", RepositoryID: repo.GithubID, AuthorID: "7"},
	}
	if err := visit(ctx, page); err != nil {
		return paginate.Result{}, err
	}
	return paginate.Result{Pages: 1, Items: len(page)}, nil
}

func (f *gatedFetcher) WalkPullRequests(ctx context.Context, repo model.Repository, visit paginate.VisitFunc[model.PullRequest]) (paginate.Result, error) {
	page := []model.PullRequest{{GithubID: "p1", AuthorID: "42", State: model.PullRequestOpen}, {GithubID: "p2", AuthorID: "7", State: model.PullRequestClosed}}
	if err := visit(ctx, page); err != nil {
		return paginate.Result{}, err
	}
	return paginate.Result{Pages: 1, Items: len(page)}, nil
}

// nopStore accepts every write.
type nopStore struct{}

func (nopStore) UpsertUser(_ context.Context, arg database.UpsertUserParams) (database.User, error) {
	return database.User{GithubID: arg.GithubID, Username: arg.Username}, nil
}
func (nopStore) UpsertRepository(_ context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	return database.Repository{GithubID: arg.GithubID}, nil
}
func (nopStore) UpsertCommit(context.Context, database.UpsertCommitParams) error { return nil }
func (nopStore) UpsertPullRequests(_ context.Context, arg []database.UpsertPullRequestParams) (int64, error) {
	return int64(len(arg)), nil
}

type fakeGithub struct {
	user    *model.User
	userErr error
	repos   []model.Repository
}

func (f *fakeGithub) GetUser(context.Context, string) (*model.User, error) { return f.user, f.userErr }
func (f *fakeGithub) ListUserRepos(context.Context, string) ([]model.Repository, error) {
	return f.repos, nil
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = testLogger
	}
	if d.DB == nil {
		d.DB = new(MockQuerier)
	}
	if d.SyncTimeout == 0 {
		d.SyncTimeout = time.Minute
	}
	return NewRouter(d)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

var storedAlice = database.User{GithubID: "42", Username: "alice", Name: "Alice"}

func TestHealthCheck(t *testing.T) {
	rec, body := do(t, newTestRouter(Deps{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestSyncCommits(t *testing.T) {
	t.Run("concurrent syncs for one user yield one success and one conflict", func(t *testing.T) {
		fetcher := newGatedFetcher()
		commits := syncer.NewCommitSyncer(fetcher, nopStore{}, guard.NewMemory(), nil, testLogger, 2, 2)
		router := newTestRouter(Deps{Commits: commits})

		first := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/commits/sync/alice", nil))
			first <- rec
		}()
		<-fetcher.entered

		rec, body := do(t, router, http.MethodPost, "/commits/sync/alice", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Sync already in progress for alice", body["message"])

		close(fetcher.proceed)
		firstRec := <-first
		assert.Equal(t, http.StatusOK, firstRec.Code)

		var firstBody map[string]any
		require.NoError(t, json.Unmarshal(firstRec.Body.Bytes(), &firstBody))
		assert.Equal(t, "Synced 3 commits", firstBody["message"])
		assert.Equal(t, 3.0, firstBody["totalCommits"])
		assert.NotEmpty(t, firstBody["syncId"])
	})

	t.Run("a different user is not blocked", func(t *testing.T) {
		fetcher := newGatedFetcher()
		g := guard.NewMemory()
		release, err := g.Acquire(context.Background(), "alice")
		require.NoError(t, err)
		defer release()
		fetcher.gate = false
		commits := syncer.NewCommitSyncer(fetcher, nopStore{}, g, nil, testLogger, 2, 2)

		rec, body := do(t, newTestRouter(Deps{Commits: commits}), http.MethodPost, "/commits/sync/bob", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Synced 3 commits", body["message"])
	})

	t.Run("failure is reported with the underlying message", func(t *testing.T) {
		fetcher := &gatedFetcher{userErr: custom_errors.ErrUserNotFound}
		commits := syncer.NewCommitSyncer(fetcher, nopStore{}, guard.NewMemory(), nil, testLogger, 2, 2)

		rec, body := do(t, newTestRouter(Deps{Commits: commits}), http.MethodPost, "/commits/sync/ghost", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, body["error"], "user not found")
	})
}

func TestSyncPullRequests(t *testing.T) {
	fetcher := &gatedFetcher{}
	prs := syncer.NewPullRequestSyncer(fetcher, nopStore{}, guard.NewMemory(), nil, testLogger)

	rec, body := do(t, newTestRouter(Deps{PullRequests: prs}), http.MethodPost, "/prs/sync/alice", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Synced 1 PRs", body["message"])
	assert.Equal(t, 1.0, body["totalPRs"])
}

func TestListCommits(t *testing.T) {
	t.Run("paginates stored commits", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("GetUserByUsername", mock.Anything, "alice").Return(storedAlice, nil).Once()
		mockQ.On("ListCommitsByAuthor", mock.Anything, database.ListCommitsByAuthorParams{AuthorID: "42", Limit: 2, Offset: 2}).
			Return([]database.Commit{{Sha: "c3", AuthorID: "42"}, {Sha: "c4", AuthorID: "42"}}, nil).Once()
		mockQ.On("CountCommitsByAuthor", mock.Anything, "42").Return(int64(5), nil).Once()
		router := newTestRouter(Deps{DB: mockQ, Commits: &syncer.CommitSyncer{}})

		rec, body := do(t, router, http.MethodGet, "/commits/alice?page=2&perPage=2", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5.0, body["totalCommits"])
		assert.Equal(t, 2.0, body["page"])
		assert.Equal(t, 3.0, body["totalPages"])
		assert.Len(t, body["commits"], 2)
		mockQ.AssertExpectations(t)
	})

	t.Run("defaults and caps page size", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("GetUserByUsername", mock.Anything, "alice").Return(storedAlice, nil).Twice()
		mockQ.On("ListCommitsByAuthor", mock.Anything, database.ListCommitsByAuthorParams{AuthorID: "42", Limit: 20, Offset: 0}).
			Return([]database.Commit{}, nil).Once()
		mockQ.On("ListCommitsByAuthor", mock.Anything, database.ListCommitsByAuthorParams{AuthorID: "42", Limit: 1000, Offset: 0}).
			Return([]database.Commit{}, nil).Once()
		mockQ.On("CountCommitsByAuthor", mock.Anything, "42").Return(int64(0), nil).Twice()
		router := newTestRouter(Deps{DB: mockQ, Commits: &syncer.CommitSyncer{}})

		rec, body := do(t, router, http.MethodGet, "/commits/alice", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0.0, body["totalPages"])

		rec, _ = do(t, router, http.MethodGet, "/commits/alice?page=abc&perPage=5000", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		mockQ.AssertExpectations(t)
	})

	t.Run("huge page keeps the offset in range", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("GetUserByUsername", mock.Anything, "alice").Return(storedAlice, nil).Twice()
		mockQ.On("ListCommitsByAuthor", mock.Anything, mock.MatchedBy(func(p database.ListCommitsByAuthorParams) bool {
			return p.Offset >= 0 && p.Limit == 1000
		})).Return([]database.Commit{}, nil).Once()
		mockQ.On("ListPullRequestsByAuthor", mock.Anything, mock.MatchedBy(func(p database.ListPullRequestsByAuthorParams) bool {
			return p.Offset >= 0 && p.Limit == 20
		})).Return([]database.PullRequest{}, nil).Once()
		mockQ.On("CountCommitsByAuthor", mock.Anything, "42").Return(int64(5), nil).Once()
		mockQ.On("CountPullRequestsByAuthor", mock.Anything, "42").Return(int64(5), nil).Once()
		router := newTestRouter(Deps{DB: mockQ, Commits: &syncer.CommitSyncer{}, PullRequests: &syncer.PullRequestSyncer{}})

		rec, body := do(t, router, http.MethodGet, "/commits/alice?page=3000000&perPage=1000", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, body["commits"])
		assert.Equal(t, 2147484.0, body["page"])

		rec, body = do(t, router, http.MethodGet, "/prs/alice?page=9223372036854775807", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, body["pullRequests"])
		mockQ.AssertExpectations(t)
	})

	t.Run("unknown user is looked up on GitHub and stored", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("GetUserByUsername", mock.Anything, "bob").Return(database.User{}, pgx.ErrNoRows).Once()
		mockQ.On("UpsertUser", mock.Anything, mock.MatchedBy(func(arg database.UpsertUserParams) bool {
			return arg.GithubID == "7" && arg.Username == "bob"
		})).Return(database.User{GithubID: "7", Username: "bob"}, nil).Once()
		mockQ.On("CountCommitsByAuthor", mock.Anything, "7").Return(int64(11), nil).Once()
		gh := &fakeGithub{user: &model.User{GithubID: "7", Username: "bob", Name: "bob", Bio: "No bio available"}}
		router := newTestRouter(Deps{DB: mockQ, Github: gh, Commits: &syncer.CommitSyncer{}})

		rec, body := do(t, router, http.MethodGet, "/commits/bob/total", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 11.0, body["totalCommits"])
		mockQ.AssertExpectations(t)
	})

	t.Run("user unknown everywhere is not found", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("GetUserByUsername", mock.Anything, "ghost").Return(database.User{}, pgx.ErrNoRows).Once()
		gh := &fakeGithub{userErr: custom_errors.ErrUserNotFound}
		router := newTestRouter(Deps{DB: mockQ, Github: gh, Commits: &syncer.CommitSyncer{}})

		rec, body := do(t, router, http.MethodGet, "/commits/ghost", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", body["error"])
		mockQ.AssertNotCalled(t, "UpsertUser", mock.Anything, mock.Anything)
	})
}

func TestCommitActivity(t *testing.T) {
	mockQ := new(MockQuerier)
	mockQ.On("GetUserByUsername", mock.Anything, "alice").Return(storedAlice, nil).Once()
	mockQ.On("CountCommitsByMonth", mock.Anything, "42").Return([]database.CountCommitsByMonthRow{
		{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Commits: 4},
		{Month: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Commits: 2},
	}, nil).Once()
	router := newTestRouter(Deps{DB: mockQ, Commits: &syncer.CommitSyncer{}})

	rec, body := do(t, router, http.MethodGet, "/commits/alice/activity", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["months"], 3)
	assert.Equal(t, 6.0, body["totalCommits"])
	assert.Equal(t, 4.0, body["max"])
}

func TestPullRequestRoutes(t *testing.T) {
	mockQ := new(MockQuerier)
	mockQ.On("GetUserByUsername", mock.Anything, "alice").Return(storedAlice, nil)
	mockQ.On("ListPullRequestsByAuthor", mock.Anything, database.ListPullRequestsByAuthorParams{AuthorID: "42", Limit: 20, Offset: 0}).
		Return([]database.PullRequest{{GithubID: "p1", State: "merged"}}, nil).Once()
	mockQ.On("CountPullRequestsByAuthor", mock.Anything, "42").Return(int64(1), nil).Twice()
	mockQ.On("CountPullRequestsByRepository", mock.Anything, "900").Return(int64(9), nil).Once()
	router := newTestRouter(Deps{DB: mockQ, PullRequests: &syncer.PullRequestSyncer{}})

	rec, body := do(t, router, http.MethodGet, "/prs/alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["totalPRs"])
	assert.Equal(t, 1.0, body["totalPages"])
	prs := body["pullRequests"].([]any)
	assert.Equal(t, "merged", prs[0].(map[string]any)["state"])

	rec, body = do(t, router, http.MethodGet, "/prs/alice/total", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["totalPRs"])

	rec, body = do(t, router, http.MethodGet, "/prs/alice/repo/900/total", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9.0, body["totalPRs"])
	mockQ.AssertExpectations(t)
}

func TestCreateUser(t *testing.T) {
	valid := `{"username": "alice", "githubId": "42", "name": "Alice", "avatarUrl": "https://a"}`

	t.Run("missing field", func(t *testing.T) {
		rec, body := do(t, newTestRouter(Deps{}), http.MethodPost, "/users", `{"username": "alice", "name": "Alice", "avatarUrl": "x"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "githubId is required", body["error"])
	})

	t.Run("invalid body", func(t *testing.T) {
		rec, _ := do(t, newTestRouter(Deps{}), http.MethodPost, "/users", `{`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("created with default bio", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("CreateUser", mock.Anything, database.CreateUserParams{
			GithubID: "42", Username: "alice", Name: "Alice", AvatarUrl: "https://a", Bio: "No bio available",
		}).Return(storedAlice, nil).Once()

		rec, body := do(t, newTestRouter(Deps{DB: mockQ}), http.MethodPost, "/users", valid)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "alice", body["username"])
		mockQ.AssertExpectations(t)
	})

	t.Run("duplicate", func(t *testing.T) {
		mockQ := new(MockQuerier)
		mockQ.On("CreateUser", mock.Anything, mock.Anything).Return(database.User{}, &pgconn.PgError{Code: "23505"}).Once()

		rec, body := do(t, newTestRouter(Deps{DB: mockQ}), http.MethodPost, "/users", valid)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "User already exists", body["error"])
	})
}

func TestFetchRepos(t *testing.T) {
	mockQ := new(MockQuerier)
	mockQ.On("UpsertRepository", mock.Anything, mock.MatchedBy(func(arg database.UpsertRepositoryParams) bool {
		return arg.GithubID == "900" && arg.FullName == "alice/r1"
	})).Return(database.Repository{GithubID: "900", FullName: "alice/r1"}, nil).Once()
	gh := &fakeGithub{repos: []model.Repository{{GithubID: "900", Owner: "alice", Name: "r1", FullName: "alice/r1"}}}

	rec := httptest.NewRecorder()
	newTestRouter(Deps{DB: mockQ, Github: gh}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos/alice", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var repos []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "alice/r1", repos[0]["fullName"])
	mockQ.AssertExpectations(t)
}

func TestServicesSelectRoutes(t *testing.T) {
	router := newTestRouter(Deps{
		Enabled: func(service string) bool { return service == config.ServiceUsers },
		Commits: &syncer.CommitSyncer{},
	})

	rec, _ := do(t, router, http.MethodPost, "/commits/sync/alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(Deps{Metrics: m})

	do(t, router, http.MethodGet, "/health", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"} 1`)
}
