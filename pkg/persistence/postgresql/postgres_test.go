package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/persistence"
	"github.com/sudao/sudao/pkg/persistence/postgresql"
	"github.com/sudao/sudao/pkg/testutil"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	containerOnce     sync.Once
	postgresContainer *postgres.PostgresContainer
	containerErr      error
)

func databaseURL(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	containerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		postgresContainer, containerErr = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("sudao_test"),
			postgres.WithUsername("sudao"),
			postgres.WithPassword("sudao"),
			postgres.BasicWaitStrategies(),
		)
	})
	require.NoError(t, containerErr)

	url, err := postgresContainer.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)

	return url
}

func dropDb(ctx context.Context, t *testing.T, url string) {
	t.Helper()

	db, err := sql.Open("postgres", url)
	require.NoError(t, err)

	for _, table := range []string{"contribution_runs", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func newJournal(t *testing.T) persistence.Journal {
	t.Helper()

	url := databaseURL(t)
	ctx := t.Context()

	dropDb(ctx, t, url)

	journal, err := postgresql.NewJournal(ctx, slog.New(slog.DiscardHandler), url)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, journal.Close(context.Background()))
	})

	return journal
}

func TestJournal(t *testing.T) {
	testutil.RunJournalSuite(t, newJournal)
}

func TestNewJournal_MigrationsAreIdempotent(t *testing.T) {
	url := databaseURL(t)
	ctx := t.Context()

	dropDb(ctx, t, url)

	for range 2 {
		journal, err := postgresql.NewJournal(ctx, slog.New(slog.DiscardHandler), url)
		require.NoError(t, err)
		require.NoError(t, journal.Close(ctx))
	}

	db, err := sql.Open("postgres", url)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}
