package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github-activity-service/internal/database"
	"github-activity-service/internal/syncer"
)

// fetchRepos fetches all repositories of a user from GitHub, stores them and
// returns the stored rows.
// GET /repos/{username}
func (h *Handler) fetchRepos(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if h.github == nil {
		respondWithError(w, http.StatusServiceUnavailable, "GitHub client not configured")
		return
	}

	repos, err := h.github.ListUserRepos(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to fetch repositories", "username", username, "fetched", len(repos), "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch repositories")
		return
	}

	stored := make([]database.Repository, 0, len(repos))
	for _, repo := range repos {
		row, err := h.db.UpsertRepository(r.Context(), syncer.RepositoryParams(repo))
		if err != nil {
			h.logger.Error("Failed to store repository", "repo", repo.FullName, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		stored = append(stored, row)
	}
	respondWithJSON(w, http.StatusOK, stored)
}

// listStoredRepos returns the repositories stored for an owner.
// GET /repos/{username}/stored
func (h *Handler) listStoredRepos(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	repos, err := h.db.ListRepositoriesByOwner(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to list repositories", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, repos)
}
