// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncInProgress is returned when a sync for the same user is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrUserNotFound is returned when a username is unknown both locally and upstream.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrMissingField is returned when a required field of a request body is empty.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ErrInvalidService is returned when the SERVICES setting names an unknown service.
type ErrInvalidService struct {
	Service string
}

func (e *ErrInvalidService) Error() string {
	return fmt.Sprintf("invalid service: %q, expected one of users, repos, commits, prs", e.Service)
}
