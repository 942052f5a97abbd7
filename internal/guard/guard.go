// Package guard keeps at most one sync per username running at a time.
package guard

import (
	"context"
	"sync"

	custom_errors "github-activity-service/internal/errors"
)

// Guard hands out per-username leases. Acquire fails with
// custom_errors.ErrSyncInProgress when the username is already held; the
// returned release func must be called exactly once.
type Guard interface {
	Acquire(ctx context.Context, username string) (release func(), err error)
}

// Memory is a process-local Guard backed by a set of in-flight usernames.
type Memory struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewMemory creates an empty in-memory guard.
func NewMemory() *Memory {
	return &Memory{inFlight: make(map[string]struct{})}
}

func (m *Memory) Acquire(_ context.Context, username string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.inFlight[username]; ok {
		return nil, custom_errors.ErrSyncInProgress
	}
	m.inFlight[username] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.inFlight, username)
			m.mu.Unlock()
		})
	}, nil
}

func (m *Memory) held(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[username]
	return ok
}
