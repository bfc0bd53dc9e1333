package contribution

import (
	"context"
	"sync"

	"github.com/sudao/sudao/pkg/models"
)

// Handle is one contribution run. Methods are safe for concurrent use; calls are
// serialized so at most one remote call per handle is in flight.
type Handle struct {
	id          string
	coordinator *Coordinator
	clients     Clients

	mu      sync.Mutex
	request Request
	state   State
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) Request() Request {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.request.clone()
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.clone()
}

// Advance executes the next pending step and returns its result. The error is the
// step's *StepError when it failed, or ctx.Err() when the context ended before the
// remote call was issued (the state is then unchanged). On a terminal run Advance does
// nothing and returns the last recorded result with a nil error.
func (h *Handle) Advance(ctx context.Context) (StepResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Status.Terminal() {
		return h.state.Last(), nil
	}

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	c := h.coordinator
	step := h.state.Next()
	previous := h.state.Status
	started := c.clock.Now()

	result := h.execute(ctx, step)

	h.state.Results = append(h.state.Results, result)
	h.state.Step = step

	var stepErr error

	if failed, ok := result.(Failed); ok {
		h.state.Status = StatusFailed
		stepErr = failed.Err
	} else if step == lastStep {
		h.state.Status = StatusCompleted
	}

	finished := c.clock.Now()

	c.notify(ctx, Transition{
		Kind:     TransitionStep,
		RunID:    h.id,
		Request:  h.request,
		Previous: previous,
		State:    h.state.clone(),
		Result:   result,
		Duration: finished.Sub(started),
		At:       finished,
	})

	return result, stepErr
}

// RunAll advances until the run is terminal, pausing Config.StepDelay between steps.
// It stops at the first failure and returns the state with that step's error. A
// cancelled context stops the run before its next remote call.
func (h *Handle) RunAll(ctx context.Context) (State, error) {
	delay := h.coordinator.config.StepDelay

	for {
		state := h.State()
		if state.Status.Terminal() {
			if failed, ok := state.Failure(); ok {
				return state, failed.Err
			}

			return state, nil
		}

		if state.Step > StepValidate && delay > 0 {
			select {
			case <-ctx.Done():
				return h.State(), ctx.Err()
			case <-h.coordinator.clock.After(delay):
			}
		}

		_, err := h.Advance(ctx)
		if err != nil {
			return h.State(), err
		}
	}
}

// Reset discards the accumulated state and rearms the handle at step 0 for req.
// An invalid req leaves the handle failed at step 0, as Start does.
func (h *Handle) Reset(ctx context.Context, req Request) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.coordinator
	previous := h.state.Status
	h.request = req.clone()
	h.state = newState()

	var (
		result StepResult
		err    error
	)

	if verr := validateRequest(h.request, h.clients); verr != nil {
		failed := verr.result()
		h.state.Results = append(h.state.Results, failed)
		h.state.Status = StatusFailed
		result, err = failed, verr
	}

	c.logger.InfoContext(ctx, "Contribution reset", "run_id", h.id, "valid", err == nil)

	c.notify(ctx, Transition{
		Kind:     TransitionReset,
		RunID:    h.id,
		Request:  h.request,
		Previous: previous,
		State:    h.state.clone(),
		Result:   result,
		At:       c.clock.Now(),
	})

	return err
}

// Reconcile reads the depositor's balances without advancing the run. It is the safe
// way to learn what happened after a transport failure; it never resubmits a step.
func (h *Handle) Reconcile(ctx context.Context) (models.Balances, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.coordinator

	if h.clients.Balances == nil {
		return models.Balances{}, newValidationError("balance query client is required")
	}

	err := ctx.Err()
	if err != nil {
		return models.Balances{}, err
	}

	started := c.clock.Now()

	balances, err := h.queryBalances(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Contribution reconciliation failed", "run_id", h.id, "error", err)

		return models.Balances{}, err
	}

	h.state.Reconciled = &balances
	finished := c.clock.Now()

	c.notify(ctx, Transition{
		Kind:     TransitionReconciled,
		RunID:    h.id,
		Request:  h.request,
		Previous: h.state.Status,
		State:    h.state.clone(),
		Duration: finished.Sub(started),
		At:       finished,
	})

	return balances, nil
}
