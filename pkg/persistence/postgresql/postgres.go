// Package postgresql stores run records in PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	// registers the "postgres" driver.
	_ "github.com/lib/pq"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/persistence"
	"github.com/sudao/sudao/pkg/persistence/sqlbase"
)

type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJournal connects, pings and migrates the database.
func NewJournal(ctx context.Context, logger *slog.Logger, databaseURL string) (*Journal, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgres_journal")

	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Journal{db: database, logger: logger}, nil
}

func (j *Journal) Close(_ context.Context) error {
	if j.db != nil {
		err := j.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (j *Journal) HealthCheck(ctx context.Context) error {
	err := j.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (j *Journal) SaveRun(ctx context.Context, run *models.RunRecord) error {
	err := persistence.ValidateRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contribution_runs (id, owner, account, amount, status, step, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			step = EXCLUDED.step,
			state = EXCLUDED.state,
			account = EXCLUDED.account,
			amount = EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at
	`

	_, err = j.db.ExecContext(ctx, query,
		run.ID, run.Owner, run.Account, run.Amount, run.Status, run.Step,
		[]byte(run.State), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to save run", "run_id", run.ID, "error", err)

		return persistence.NewRunError("SaveRun", run.ID, err)
	}

	return nil
}

const selectRun = `
	SELECT id, owner, account, amount::text, status, step, state, created_at, updated_at
	FROM contribution_runs
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.RunRecord, error) {
	var (
		run   models.RunRecord
		state []byte
	)

	err := row.Scan(&run.ID, &run.Owner, &run.Account, &run.Amount, &run.Status, &run.Step,
		&state, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	run.State = state

	return &run, nil
}

func (j *Journal) RunByID(ctx context.Context, id string) (*models.RunRecord, error) {
	run, err := scanRun(j.db.QueryRowContext(ctx, selectRun+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("RunByID", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", id, err)
	}

	return run, nil
}

func (j *Journal) RunsByOwner(ctx context.Context, owner string, limit int) ([]*models.RunRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		selectRun+" WHERE owner = $1 ORDER BY created_at DESC LIMIT $2",
		owner, persistence.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs of %s: %w", owner, err)
	}
	defer rows.Close()

	runs := make([]*models.RunRecord, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (j *Journal) DeleteRun(ctx context.Context, id string) error {
	result, err := j.db.ExecContext(ctx, "DELETE FROM contribution_runs WHERE id = $1", id)
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	if affected == 0 {
		return persistence.NewRunError("DeleteRun", id, persistence.ErrRunNotFound)
	}

	return nil
}
