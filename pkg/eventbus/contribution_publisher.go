package eventbus

import (
	"context"
	"log/slog"

	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/events"
	"github.com/sudao/sudao/pkg/models"
)

// ContributionPublisher turns run transitions into events keyed by run ID.
// Publish failures are logged; they never affect the run.
type ContributionPublisher struct {
	logger *slog.Logger
	bus    EventPublisher
}

func NewContributionPublisher(logger *slog.Logger, bus EventPublisher) *ContributionPublisher {
	return &ContributionPublisher{
		logger: logger.With("module", "contribution_publisher"),
		bus:    bus,
	}
}

func (p *ContributionPublisher) OnTransition(ctx context.Context, t contribution.Transition) {
	for _, event := range contributionEvents(t) {
		err := p.bus.Publish(ctx, t.RunID, event)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish contribution event",
				"run_id", t.RunID,
				"event_type", event.GetType(),
				"error", err,
			)
		}
	}
}

func contributionEvents(t contribution.Transition) []Event {
	account := t.Request.Account.String()

	if failed, ok := t.State.Failure(); ok && t.Result != nil {
		base := events.NewBaseEvent(events.ContributionFailedEvent, t.RunID)

		return []Event{events.ContributionFailed{
			BaseEvent:       base,
			Account:         account,
			Step:            int(failed.StepIndex),
			StepName:        failed.StepIndex.String(),
			ErrorKind:       string(failed.Kind),
			Reason:          failed.Reason,
			OutcomeUnknown:  failed.OutcomeUnknown(),
			ApprovalGranted: t.State.ApprovalGranted(),
		}}
	}

	switch t.Kind {
	case contribution.TransitionStarted:
		return []Event{events.ContributionStarted{
			BaseEvent: events.NewBaseEvent(events.ContributionStartedEvent, t.RunID),
			Account:   account,
			Amount:    models.FormatAmount(t.Request.Amount),
		}}
	case contribution.TransitionStep:
		return stepEvents(t, account)
	case contribution.TransitionReset:
		return []Event{events.ContributionReset{
			BaseEvent: events.NewBaseEvent(events.ContributionResetEvent, t.RunID),
			Amount:    models.FormatAmount(t.Request.Amount),
		}}
	case contribution.TransitionReconciled:
		reconciled := events.ContributionReconciled{
			BaseEvent: events.NewBaseEvent(events.ContributionReconciledEvent, t.RunID),
			Status:    string(t.State.Status),
		}

		if b := t.State.Reconciled; b != nil {
			reconciled.Deposit = models.FormatAmount(b.Deposit)
			reconciled.Governance = models.FormatAmount(b.Governance)
		}

		return []Event{reconciled}
	default:
		return nil
	}
}

func stepEvents(t contribution.Transition, account string) []Event {
	if t.Result == nil {
		return nil
	}

	result, _ := contribution.MarshalResult(t.Result)

	out := []Event{events.ContributionStepCompleted{
		BaseEvent: events.NewBaseEvent(events.ContributionStepCompletedEvent, t.RunID),
		Step:      int(t.Result.Step()),
		StepName:  t.Result.Step().String(),
		Result:    result,
		Duration:  t.Duration,
	}}

	if !t.State.Completed() {
		return out
	}

	completed := events.ContributionCompleted{
		BaseEvent: events.NewBaseEvent(events.ContributionCompletedEvent, t.RunID),
		Account:   account,
		Amount:    models.FormatAmount(t.Request.Amount),
	}

	for _, r := range t.State.Results {
		switch r := r.(type) {
		case contribution.Swapped:
			completed.ActualOut = models.FormatAmount(r.ActualOut)
		case contribution.BalancesChecked:
			completed.Deposit = models.FormatAmount(r.Balances.Deposit)
			completed.Governance = models.FormatAmount(r.Balances.Governance)
		}
	}

	return append(out, completed)
}
