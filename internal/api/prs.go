package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github-activity-service/internal/database"
)

// listPullRequests returns one page of a user's stored pull requests.
// GET /prs/{username}?page=&perPage=
func (h *Handler) listPullRequests(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}

	page, perPage := pageParams(r)
	prs, err := h.db.ListPullRequestsByAuthor(r.Context(), database.ListPullRequestsByAuthorParams{
		AuthorID: user.GithubID,
		Limit:    int32(perPage),
		Offset:   pageOffset(page, perPage),
	})
	if err != nil {
		h.logger.Error("Failed to list pull requests", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := h.db.CountPullRequestsByAuthor(r.Context(), user.GithubID)
	if err != nil {
		h.logger.Error("Failed to count pull requests", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"pullRequests": prs,
		"totalPRs":     total,
		"page":         page,
		"totalPages":   totalPages(total, perPage),
	})
}

// GET /prs/{username}/total
func (h *Handler) totalPullRequests(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}

	total, err := h.db.CountPullRequestsByAuthor(r.Context(), user.GithubID)
	if err != nil {
		h.logger.Error("Failed to count pull requests", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"totalPRs": total})
}

// totalRepoPullRequests counts stored pull requests of one repository,
// whoever opened them.
// GET /prs/{username}/repo/{repoId}/total
func (h *Handler) totalRepoPullRequests(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repoId")
	total, err := h.db.CountPullRequestsByRepository(r.Context(), repoID)
	if err != nil {
		h.logger.Error("Failed to count repository pull requests", "repo_id", repoID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"totalPRs": total})
}
