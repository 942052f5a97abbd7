package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github-activity-service/internal/database"
	custom_errors "github-activity-service/internal/errors"
)

const uniqueViolation = "23505"

type createUserRequest struct {
	Username  string  `json:"username"`
	GithubID  string  `json:"githubId"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatarUrl"`
	Bio       string  `json:"bio"`
}

func (req createUserRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"username", req.Username},
		{"githubId", req.GithubID},
		{"name", req.Name},
		{"avatarUrl", req.AvatarURL},
	} {
		if f.value == "" {
			return &custom_errors.ErrMissingField{Field: f.name}
		}
	}
	return nil
}

// listUsers returns every stored user.
// GET /users
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// getUser returns a stored user, fetching and storing it from GitHub first
// when it is unknown.
// GET /users/{username}
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.resolveUser(r.Context(), username)
	if err != nil {
		h.respondWithLookupError(w, username, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// createUser stores a user from the request body.
// POST /users
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Bio == "" {
		req.Bio = "No bio available"
	}

	user, err := h.db.CreateUser(r.Context(), database.CreateUserParams{
		GithubID:  req.GithubID,
		Username:  req.Username,
		Name:      req.Name,
		Email:     req.Email,
		AvatarUrl: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		if errors.Is(uniqueError(err), custom_errors.ErrAlreadyExists) {
			respondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		h.logger.Error("Failed to create user", "username", req.Username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// uniqueError turns a unique key violation into ErrAlreadyExists.
func uniqueError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, custom_errors.ErrAlreadyExists)
	}
	return err
}
