package persistence

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sudao/sudao/pkg/models"
)

var (
	// ErrRunNotFound indicates no run record exists for the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidRun indicates a run record failed validation before being stored.
	ErrInvalidRun = errors.New("invalid run record")
)

// RunError wraps journal errors with the operation and run identifier.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRun is shared by the backends before writing.
func ValidateRun(run *models.RunRecord) error {
	if run == nil {
		return ErrInvalidRun
	}

	err := validate.Struct(run)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}

	return nil
}
