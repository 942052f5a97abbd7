package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github-activity-service/internal/activity"
	"github-activity-service/internal/database"
)

// listCommits returns one page of a user's stored commits, newest first.
// GET /commits/{username}?page=&perPage=
func (h *Handler) listCommits(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}

	page, perPage := pageParams(r)
	commits, err := h.db.ListCommitsByAuthor(r.Context(), database.ListCommitsByAuthorParams{
		AuthorID: user.GithubID,
		Limit:    int32(perPage),
		Offset:   pageOffset(page, perPage),
	})
	if err != nil {
		h.logger.Error("Failed to list commits", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := h.db.CountCommitsByAuthor(r.Context(), user.GithubID)
	if err != nil {
		h.logger.Error("Failed to count commits", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"commits":      commits,
		"totalCommits": total,
		"page":         page,
		"totalPages":   totalPages(total, perPage),
	})
}

// totalCommits returns the number of stored commits of a user.
// GET /commits/{username}/total
func (h *Handler) totalCommits(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}

	total, err := h.db.CountCommitsByAuthor(r.Context(), user.GithubID)
	if err != nil {
		h.logger.Error("Failed to count commits", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"totalCommits": total})
}

// commitActivity returns commits per month and summary figures.
// GET /commits/{username}/activity
func (h *Handler) commitActivity(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}

	rows, err := h.db.CountCommitsByMonth(r.Context(), user.GithubID)
	if err != nil {
		h.logger.Error("Failed to count commits by month", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	counts := make([]activity.MonthCount, len(rows))
	for i, row := range rows {
		counts[i] = activity.MonthCount{Month: row.Month, Commits: row.Commits}
	}

	summary, err := activity.Summarize(counts)
	if err != nil {
		h.logger.Error("Failed to summarize activity", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
