package persistence

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/models"
)

// JournalObserver writes a run record after every transition. Journal failures are
// logged and never affect the run.
type JournalObserver struct {
	logger  *slog.Logger
	journal Journal
}

func NewJournalObserver(logger *slog.Logger, journal Journal) *JournalObserver {
	return &JournalObserver{
		logger:  logger.With("module", "journal_observer"),
		journal: journal,
	}
}

func (o *JournalObserver) OnTransition(ctx context.Context, t contribution.Transition) {
	record, err := RecordFromTransition(t)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to encode run record", "run_id", t.RunID, "error", err)

		return
	}

	err = o.journal.SaveRun(ctx, record)
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to journal run", "run_id", t.RunID, "error", err)
	}
}

func RecordFromTransition(t contribution.Transition) (*models.RunRecord, error) {
	return NewRunRecord(t.RunID, t.Request, t.State, t.At, t.At)
}

// NewRunRecord snapshots a run. Journals keep the first CreatedAt they saw for an ID.
func NewRunRecord(
	id string,
	req contribution.Request,
	state contribution.State,
	createdAt, updatedAt time.Time,
) (*models.RunRecord, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	return &models.RunRecord{
		ID:        id,
		Owner:     req.Account.Owner.String(),
		Account:   req.Account.String(),
		Amount:    models.FormatAmount(req.Amount),
		Status:    string(state.Status),
		Step:      int(state.Step),
		State:     encoded,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
