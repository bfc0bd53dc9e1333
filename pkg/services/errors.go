// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/sudao/sudao/pkg/persistence"
)

var (
	// ErrSessionNotFound is returned when no live session or journal record has the ID.
	ErrSessionNotFound = errors.New("contribution session not found")
	ErrRateLimited     = errors.New("too many contributions started for this account")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyOwner      = errors.New("owner cannot be empty")

	// ErrSessionActive is returned when acknowledging a run that has not finished.
	ErrSessionActive = errors.New("contribution session is still in progress")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string
	RunID   string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.RunID, e.Message)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.RunID, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(op, runID string, err error) *ServiceError {
	return &ServiceError{Op: op, RunID: runID, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || persistence.IsRunNotFound(err)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrEmptyOwner)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionActive)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
