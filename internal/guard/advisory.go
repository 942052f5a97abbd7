package guard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	custom_errors "github-activity-service/internal/errors"
)

// Lock namespaces keep commit and pull-request syncs independent.
const (
	NamespaceCommits      int32 = 1
	NamespacePullRequests int32 = 2
)

// Advisory is a Guard backed by Postgres session advisory locks, so every
// instance sharing the database sees the same leases. A lease pins one pooled
// connection for its lifetime.
type Advisory struct {
	pool      *pgxpool.Pool
	namespace int32
	logger    *slog.Logger
}

// NewAdvisory creates an advisory-lock guard for one lock namespace.
func NewAdvisory(pool *pgxpool.Pool, namespace int32, logger *slog.Logger) *Advisory {
	return &Advisory{pool: pool, namespace: namespace, logger: logger}
}

func (a *Advisory) Acquire(ctx context.Context, username string) (func(), error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for sync lock: %w", err)
	}

	var locked bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1, hashtext($2))`, a.namespace, username).Scan(&locked)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("taking sync lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, custom_errors.ErrSyncInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock($1, hashtext($2))`, a.namespace, username); err != nil {
				a.logger.Error("Failed to release sync lock, closing connection", "username", username, "error", err)
				// Closing the session drops every lock it holds.
				_ = conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}
