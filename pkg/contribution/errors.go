package contribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/sudao/sudao/pkg/protocol"
)

// ErrorKind classifies why a step failed and what the caller may do next.
type ErrorKind string

const (
	// KindValidation: rejected before any remote call; fix the input.
	KindValidation ErrorKind = "validation"
	// KindRemoteRejection: the service refused; retrying needs different parameters.
	KindRemoteRejection ErrorKind = "remote_rejection"
	// KindTransport: the outcome is unknown; reconcile balances before resubmitting.
	KindTransport ErrorKind = "transport"
	// KindStaleState: a remote precondition failed, e.g. an allowance already exists.
	KindStaleState ErrorKind = "stale_state"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrRemoteRejection = errors.New("remote rejection")
	ErrTransport       = errors.New("transport error")
	ErrStaleState      = errors.New("stale state")

	// ErrUnknownHandle is returned by services that look handles up by ID.
	ErrUnknownHandle = errors.New("unknown contribution handle")
)

const reasonStaleAllowance = "stale allowance"

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindRemoteRejection:
		return ErrRemoteRejection
	case KindTransport:
		return ErrTransport
	case KindStaleState:
		return ErrStaleState
	default:
		return nil
	}
}

// StepError wraps the remote error of a failed step with its position and class.
type StepError struct {
	Step   Step
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("contribution step %d (%s) failed [%s]: %s", int(e.Step), e.Step, e.Kind, e.Reason)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error kind; the wrapped error is matched through Unwrap.
func (e *StepError) Is(target error) bool {
	sentinel := e.Kind.sentinel()

	return sentinel != nil && target == sentinel
}

func newValidationError(reason string) *StepError {
	return &StepError{Step: StepValidate, Kind: KindValidation, Reason: reason, Err: ErrValidation}
}

// classify maps a client error to the taxonomy. Anything that is not a structured
// remote refusal is treated as a transport failure with an unknown outcome.
func classify(step Step, err error) *StepError {
	var existing *StepError
	if errors.As(err, &existing) {
		return existing
	}

	switch {
	case step == StepApprove && protocol.IsLedgerError(err, protocol.LedgerAllowanceChanged):
		return &StepError{Step: step, Kind: KindStaleState, Reason: reasonStaleAllowance, Err: err}
	case protocol.IsRejection(err):
		return &StepError{Step: step, Kind: KindRemoteRejection, Reason: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &StepError{Step: step, Kind: KindTransport, Reason: "timed out: " + err.Error(), Err: err}
	default:
		return &StepError{Step: step, Kind: KindTransport, Reason: err.Error(), Err: err}
	}
}

func (e *StepError) result() Failed {
	return Failed{StepIndex: e.Step, Kind: e.Kind, Reason: e.Reason, Err: e}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsRemoteRejection(err error) bool {
	return errors.Is(err, ErrRemoteRejection)
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

func IsStaleState(err error) bool {
	return errors.Is(err, ErrStaleState)
}
