package cmd

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/clients/gateway"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/persistence/file"
	cli "github.com/urfave/cli/v3"
)

func TestParseJournalProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{url: "./data", want: "file"},
		{url: "file:///tmp/sudao", want: "file"},
		{url: "redis://localhost:6379/0", want: "redis"},
		{url: "rediss://cache:6380", want: "rediss"},
		{url: "postgres://user:pass@db/sudao", want: "postgres"},
		{url: "postgresql://db/sudao", want: "postgresql"},
		{url: "mongodb://db", want: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, parseJournalProvider(tt.url))
		})
	}
}

func TestNewJournal_File(t *testing.T) {
	t.Parallel()

	journal, err := NewJournal(t.Context(), slog.New(slog.DiscardHandler), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Journal{}, journal)
	require.NoError(t, journal.HealthCheck(t.Context()))
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("gochannel", "", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", "", slog.New(slog.DiscardHandler))
	require.Error(t, err)

	_, err = NewEventBus("nats", "", slog.New(slog.DiscardHandler))
	require.Error(t, err)
}

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog(slog.New(slog.DiscardHandler), "", nil)
	require.NoError(t, err)
	assert.Len(t, catalog.Plugins(), 5)
}

func TestNewClients(t *testing.T) {
	t.Parallel()

	_, err := NewClients(slog.New(slog.DiscardHandler), ClientsConfig{LedgerURL: "http://ledger"})
	require.Error(t, err)

	clients, err := NewClients(slog.New(slog.DiscardHandler), ClientsConfig{
		LedgerURL:           "http://ledger",
		GovernanceLedgerURL: "http://governance",
		AMMURL:              "http://amm",
	})
	require.NoError(t, err)
	assert.NotNil(t, clients.Ledger)
	assert.NotNil(t, clients.Exchange)
	assert.NotNil(t, clients.Balances)
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, shutdown, err := NewTracer(t.Context(), false)
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	require.NoError(t, shutdown(t.Context()))
}

func runFlags(t *testing.T, args ...string) (*cli.Command, error) {
	t.Helper()

	var captured *cli.Command

	command := &cli.Command{
		Name:  "test",
		Flags: append(ClientFlags(), WorkflowFlags()...),
		Action: func(_ context.Context, command *cli.Command) error {
			captured = command

			return nil
		},
	}

	base := []string{
		"test",
		"--ledger-url", "http://ledger",
		"--governance-ledger-url", "http://governance",
		"--amm-url", "http://amm",
		"--amm-account", "zqy4v-yykae",
	}

	err := command.Run(t.Context(), append(base, args...))

	return captured, err
}

func TestContributionConfigFromCommand(t *testing.T) {
	t.Parallel()

	command, err := runFlags(t, "--slippage-bps", "50", "--ledger-fee", "20_000", "--step-delay", "1s")
	require.NoError(t, err)

	config, err := ContributionConfigFromCommand(command)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), config.SlippageBps)
	assert.Equal(t, "20000", config.ApproveFee.String())
	assert.Equal(t, "20000", config.TransferFee.String())
	assert.Equal(t, time.Second, config.StepDelay)
	assert.Equal(t, contribution.DefaultApprovalTTL, config.ApprovalTTL)

	clientsConfig := ClientsConfigFromCommand(command)
	assert.Equal(t, "http://amm", clientsConfig.AMMURL)
	assert.Equal(t, gateway.DefaultTimeout, clientsConfig.Timeout)

	exchange, asset, err := Exchange(command)
	require.NoError(t, err)
	assert.Equal(t, "zqy4v-yykae", exchange.String())
	assert.Equal(t, "ryjl3-tyaaa-aaaaa-aaaba-cai", asset.String())
}

func TestContributionConfigFromCommand_Invalid(t *testing.T) {
	t.Parallel()

	command, err := runFlags(t, "--slippage-bps", "10000")
	require.NoError(t, err)

	_, err = ContributionConfigFromCommand(command)
	require.Error(t, err)

	command, err = runFlags(t, "--ledger-fee=-1")
	require.NoError(t, err)

	_, err = ContributionConfigFromCommand(command)
	require.Error(t, err)

	command, err = runFlags(t, "--deposit-asset", "bad!asset")
	require.NoError(t, err)

	_, _, err = Exchange(command)
	require.Error(t, err)
}
