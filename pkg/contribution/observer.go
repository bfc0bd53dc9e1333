package contribution

import (
	"context"
	"time"
)

type TransitionKind string

const (
	TransitionStarted    TransitionKind = "started"
	TransitionStep       TransitionKind = "step"
	TransitionReset      TransitionKind = "reset"
	TransitionReconciled TransitionKind = "reconciled"
)

// Transition describes one change of a run's state.
type Transition struct {
	Kind    TransitionKind
	RunID   string
	Request Request
	// Previous is the status before the transition.
	Previous Status
	State    State
	// Result is the appended result for step transitions and failed starts.
	Result   StepResult
	Duration time.Duration
	At       time.Time
}

// Observer is notified synchronously after each transition, with the handle unlocked
// from the caller's perspective only after all observers return. Observers must not
// call back into the same handle.
type Observer interface {
	OnTransition(ctx context.Context, t Transition)
}

type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}
