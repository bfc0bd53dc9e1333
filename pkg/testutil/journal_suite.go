package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
)

// RunJournalSuite checks the persistence.Journal contract. newJournal must return an
// empty journal on every call.
func RunJournalSuite(t *testing.T, newJournal func(t *testing.T) persistence.Journal) {
	t.Helper()

	t.Run("save and load", func(t *testing.T) {
		journal := newJournal(t)
		ctx := t.Context()

		run := CreateTestRun()
		require.NoError(t, journal.SaveRun(ctx, run))

		loaded, err := journal.RunByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, loaded.ID)
		assert.Equal(t, run.Amount, loaded.Amount)
		assert.Equal(t, run.Status, loaded.Status)
		assert.JSONEq(t, string(run.State), string(loaded.State))
		assert.True(t, run.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("save keeps created at", func(t *testing.T) {
		journal := newJournal(t)
		ctx := t.Context()

		created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		run := CreateTestRun(WithCreatedAt(created))
		require.NoError(t, journal.SaveRun(ctx, run))

		update := *run
		update.Status = "completed"
		update.Step = 4
		update.CreatedAt = created.Add(time.Minute)
		update.UpdatedAt = created.Add(time.Minute)
		require.NoError(t, journal.SaveRun(ctx, &update))

		loaded, err := journal.RunByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "completed", loaded.Status)
		assert.Equal(t, 4, loaded.Step)
		assert.True(t, created.Equal(loaded.CreatedAt))
		assert.True(t, update.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("missing run", func(t *testing.T) {
		journal := newJournal(t)

		_, err := journal.RunByID(t.Context(), "run-missing")
		require.Error(t, err)
		assert.True(t, persistence.IsRunNotFound(err))

		err = journal.DeleteRun(t.Context(), "run-missing")
		assert.True(t, persistence.IsRunNotFound(err))
	})

	t.Run("invalid run", func(t *testing.T) {
		journal := newJournal(t)

		err := journal.SaveRun(t.Context(), CreateTestRun(func(r *models.RunRecord) { r.ID = "" }))
		require.ErrorIs(t, err, persistence.ErrInvalidRun)
	})

	t.Run("runs by owner newest first", func(t *testing.T) {
		journal := newJournal(t)
		ctx := t.Context()

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		oldest := CreateTestRun(WithCreatedAt(base))
		newest := CreateTestRun(WithCreatedAt(base.Add(2 * time.Hour)))
		middle := CreateTestRun(WithCreatedAt(base.Add(time.Hour)))
		other := CreateTestRun(WithOwner("aaaaa-aa"), WithCreatedAt(base))

		for _, run := range []*models.RunRecord{oldest, newest, middle, other} {
			require.NoError(t, journal.SaveRun(ctx, run))
		}

		runs, err := journal.RunsByOwner(ctx, TestOwner, 0)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, newest.ID, runs[0].ID)
		assert.Equal(t, middle.ID, runs[1].ID)
		assert.Equal(t, oldest.ID, runs[2].ID)

		runs, err = journal.RunsByOwner(ctx, TestOwner, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 2)

		runs, err = journal.RunsByOwner(ctx, "ryjl3-tyaaa-aaaaa-aaaba-cai", 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("delete", func(t *testing.T) {
		journal := newJournal(t)
		ctx := t.Context()

		run := CreateTestRun()
		require.NoError(t, journal.SaveRun(ctx, run))
		require.NoError(t, journal.DeleteRun(ctx, run.ID))

		_, err := journal.RunByID(ctx, run.ID)
		assert.True(t, persistence.IsRunNotFound(err))

		runs, err := journal.RunsByOwner(ctx, TestOwner, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("health check", func(t *testing.T) {
		journal := newJournal(t)
		assert.NoError(t, journal.HealthCheck(context.Background()))
	})
}
