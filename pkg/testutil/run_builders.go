// Package testutil provides test data builders and shared test suites.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sudao/sudao/pkg/models"
)

// TestOwner is the principal text used by CreateTestRun.
const TestOwner = "2vxsx-fae"

// CreateTestRun creates a RunRecord with default values that can be overridden.
func CreateTestRun(overrides ...func(*models.RunRecord)) *models.RunRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)

	run := &models.RunRecord{
		ID:        "run-" + uuid.New().String(),
		Owner:     TestOwner,
		Account:   TestOwner,
		Amount:    "10000",
		Status:    "in_progress",
		Step:      0,
		State:     json.RawMessage(`{"step":0,"status":"in_progress","results":[]}`),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(run)
	}

	return run
}

func WithOwner(owner string) func(*models.RunRecord) {
	return func(r *models.RunRecord) {
		r.Owner = owner
		r.Account = owner
	}
}

func WithCreatedAt(at time.Time) func(*models.RunRecord) {
	return func(r *models.RunRecord) {
		r.CreatedAt = at
		r.UpdatedAt = at
	}
}

func WithStatus(status string, step int) func(*models.RunRecord) {
	return func(r *models.RunRecord) {
		r.Status = status
		r.Step = step
	}
}
