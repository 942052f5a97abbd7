package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	custom_errors "github-activity-service/internal/errors"
	"github-activity-service/internal/syncer"
)

// syncCommits runs a commit sync for a user.
// POST /commits/sync/{username}
func (h *Handler) syncCommits(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, h.commits, func(res syncer.Result) map[string]any {
		return map[string]any{
			"message":      fmt.Sprintf("Synced %d commits", res.Records),
			"totalCommits": res.Records,
			"syncId":       res.SyncID,
		}
	})
}

// syncPullRequests runs a pull request sync for a user.
// POST /prs/sync/{username}
func (h *Handler) syncPullRequests(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, h.pullRequests, func(res syncer.Result) map[string]any {
		return map[string]any{
			"message":  fmt.Sprintf("Synced %d PRs", res.Records),
			"totalPRs": res.Records,
			"syncId":   res.SyncID,
		}
	})
}

// runSync detaches the sync from the client connection. It still stops on
// SYNC_TIMEOUT or when the base context is cancelled.
func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, s Syncer, body func(syncer.Result) map[string]any) {
	username := chi.URLParam(r, "username")

	ctx := context.WithoutCancel(r.Context())
	var cancel context.CancelFunc
	if h.syncTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.syncTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	stop := context.AfterFunc(h.baseCtx, cancel)
	defer stop()

	res, err := s.Sync(ctx, username)
	if err != nil {
		if errors.Is(err, custom_errors.ErrSyncInProgress) {
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"message": fmt.Sprintf("Sync already in progress for %s", username),
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, body(res))
}
