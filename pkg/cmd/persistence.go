package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sudao/sudao/pkg/persistence"
	"github.com/sudao/sudao/pkg/persistence/file"
	"github.com/sudao/sudao/pkg/persistence/postgresql"
	"github.com/sudao/sudao/pkg/persistence/redis"
)

var supportedJournalProviders = []string{"file", "redis", "rediss", "postgres", "postgresql"}

// NewJournal picks the journal implementation from the URL scheme. A URL without a
// known scheme is a file journal directory.
func NewJournal(ctx context.Context, logger *slog.Logger, journalURL string) (persistence.Journal, error) {
	provider := parseJournalProvider(journalURL)

	logger.InfoContext(ctx, "Initializing run journal", "provider", provider)

	var (
		journal persistence.Journal
		err     error
	)

	switch provider {
	case "redis", "rediss":
		journal, err = redis.NewJournal(ctx, logger, journalURL)
	case "postgres", "postgresql":
		journal, err = postgresql.NewJournal(ctx, logger, journalURL)
	default:
		journal, err = file.NewJournal(journalURL)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s journal: %w", provider, err)
	}

	return journal, nil
}

func parseJournalProvider(journalURL string) string {
	provider, _, found := strings.Cut(journalURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedJournalProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
