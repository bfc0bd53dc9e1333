// Package contribution drives the contribution workflow: approve the exchange on the
// deposit ledger, quote, swap, and read back balances. Each Handle is one run; runs are
// independent and each executes strictly one remote call at a time.
package contribution

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

type Coordinator struct {
	logger    *slog.Logger
	config    Config
	clock     clockwork.Clock
	tracer    trace.Tracer
	observers []Observer
	newID     func() string
}

func NewCoordinator(logger *slog.Logger, config Config, opts ...Option) (*Coordinator, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		logger: logger.With("module", "contribution"),
		config: config,
	}

	defaultOptions(c)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Coordinator) Config() Config {
	return c.config
}

// Start creates a run. The returned handle is never nil: when the request is invalid
// the handle is already failed at step 0 and the validation error is returned too.
// Start itself never calls a remote service.
func (c *Coordinator) Start(ctx context.Context, req Request, clients Clients) (*Handle, error) {
	h := &Handle{
		id:          c.newID(),
		coordinator: c,
		clients:     clients,
		request:     req.clone(),
		state:       newState(),
	}

	logger := c.logger.With("run_id", h.id)

	var (
		result StepResult
		err    error
	)

	if verr := validateRequest(h.request, clients); verr != nil {
		failed := verr.result()
		h.state.Results = append(h.state.Results, failed)
		h.state.Status = StatusFailed
		result, err = failed, verr

		logger.WarnContext(ctx, "Contribution rejected before start", "reason", verr.Reason)
	} else {
		logger.InfoContext(ctx, "Contribution started",
			"account", h.request.Account.String(),
			"amount", h.request.Amount.String(),
		)
	}

	c.notify(ctx, Transition{
		Kind:     TransitionStarted,
		RunID:    h.id,
		Request:  h.request,
		Previous: StatusInProgress,
		State:    h.state.clone(),
		Result:   result,
		At:       c.clock.Now(),
	})

	return h, err
}

func (c *Coordinator) notify(ctx context.Context, t Transition) {
	for _, o := range c.observers {
		o.OnTransition(ctx, t)
	}
}
