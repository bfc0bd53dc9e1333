package contribution

import (
	"encoding/json"
	"slices"

	"github.com/sudao/sudao/pkg/models"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// State is a snapshot of one run. Values returned by Handle.State are copies and can be
// kept by the caller.
type State struct {
	// Step is the last step attempted; 0 before the first Advance.
	Step    Step
	Status  Status
	Results []StepResult
	// Reconciled holds the latest balances read by Handle.Reconcile, if any.
	Reconciled *models.Balances
}

func newState() State {
	return State{Step: StepValidate, Status: StatusInProgress}
}

func (s State) Completed() bool {
	return s.Status == StatusCompleted
}

func (s State) Failed() bool {
	return s.Status == StatusFailed
}

// Next is the step the next Advance will execute, or StepNone when terminal.
func (s State) Next() Step {
	if s.Status.Terminal() {
		return StepNone
	}

	return s.Step + 1
}

// Last returns the most recent result or nil for an untouched run.
func (s State) Last() StepResult {
	if len(s.Results) == 0 {
		return nil
	}

	return s.Results[len(s.Results)-1]
}

// Failure returns the failed result when the run is in the failed state.
func (s State) Failure() (Failed, bool) {
	if s.Status != StatusFailed {
		return Failed{}, false
	}

	failed, ok := s.Last().(Failed)

	return failed, ok
}

// ApprovalGranted is true once step 1 succeeded: a live allowance exists on the ledger
// even if a later step failed.
func (s State) ApprovalGranted() bool {
	_, ok := find[Approved](s.Results)

	return ok
}

func (s State) clone() State {
	c := s
	c.Results = slices.Clone(s.Results)

	if s.Reconciled != nil {
		reconciled := *s.Reconciled
		c.Reconciled = &reconciled
	}

	return c
}

func find[T StepResult](results []StepResult) (T, bool) {
	for _, r := range results {
		if typed, ok := r.(T); ok {
			return typed, true
		}
	}

	var zero T

	return zero, false
}

type stateJSON struct {
	Step            int              `json:"step"`
	StepName        string           `json:"step_name"`
	Next            string           `json:"next"`
	Status          Status           `json:"status"`
	ApprovalGranted bool             `json:"approval_granted"`
	Results         []resultJSON     `json:"results"`
	Reconciled      *models.Balances `json:"reconciled,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Step:            int(s.Step),
		StepName:        s.Step.String(),
		Next:            s.Next().String(),
		Status:          s.Status,
		ApprovalGranted: s.ApprovalGranted(),
		Results:         make([]resultJSON, 0, len(s.Results)),
		Reconciled:      s.Reconciled,
	}

	for _, r := range s.Results {
		out.Results = append(out.Results, resultEnvelope(r))
	}

	return json.Marshal(out)
}
