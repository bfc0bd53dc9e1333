package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudao/sudao/pkg/channels/gochannel"
	"github.com/sudao/sudao/pkg/contribution"
	"github.com/sudao/sudao/pkg/eventbus"
	"github.com/sudao/sudao/pkg/events"
	"github.com/sudao/sudao/pkg/models"
	"github.com/sudao/sudao/pkg/protocol"
	"github.com/sudao/sudao/pkg/registry"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(slog.New(slog.DiscardHandler), pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func collect(t *testing.T, bus *eventbus.WatermillEventBus, types ...events.EventType) <-chan events.Event {
	t.Helper()

	received := make(chan events.Event, 16)

	for _, eventType := range types {
		require.NoError(t, bus.Handle(eventType, func(_ context.Context, event events.Event) error {
			received <- event

			return nil
		}))
	}

	require.NoError(t, bus.Subscribe(t.Context()))

	return received
}

func next(t *testing.T, received <-chan events.Event) events.Event {
	t.Helper()

	select {
	case event := <-received:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")

		return nil
	}
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := collect(t, bus, events.PluginInstalledEvent)

	err := bus.Publish(t.Context(), "proposal", events.PluginInstalled{
		BaseEvent: events.NewBaseEvent(events.PluginInstalledEvent, ""),
		PluginID:  "proposal",
	})
	require.NoError(t, err)

	event, ok := next(t, received).(*events.PluginInstalled)
	require.True(t, ok)
	assert.Equal(t, "proposal", event.PluginID)
	assert.NotEmpty(t, bus.GenerateID())
}

func TestWatermillEventBus_NackedEventIsRedelivered(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	attempts := make(chan string, 4)
	failures := 0

	require.NoError(t, bus.Handle(events.PluginToggledEvent, func(_ context.Context, event events.Event) error {
		toggled := event.(*events.PluginToggled)
		attempts <- toggled.PluginID

		if failures == 0 {
			failures++

			return errors.New("rejected")
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "latest-news", events.PluginToggled{
		BaseEvent: events.NewBaseEvent(events.PluginToggledEvent, ""),
		PluginID:  "latest-news",
		Enabled:   true,
	}))

	assert.Len(t, attempts, 2)
	assert.Equal(t, "latest-news", <-attempts)
	assert.Equal(t, "latest-news", <-attempts)
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := collect(t, bus, events.PluginInstalledEvent)

	require.NoError(t, bus.Publish(t.Context(), "x", events.PluginUninstalled{
		BaseEvent: events.NewBaseEvent(events.PluginUninstalledEvent, ""),
		PluginID:  "x",
	}))
	require.NoError(t, bus.Publish(t.Context(), "y", events.PluginInstalled{
		BaseEvent: events.NewBaseEvent(events.PluginInstalledEvent, ""),
		PluginID:  "y",
	}))

	installed, ok := next(t, received).(*events.PluginInstalled)
	require.True(t, ok)
	assert.Equal(t, "y", installed.PluginID)
}

type stubLedger struct{}

func (stubLedger) Approve(context.Context, protocol.ApproveArgs) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (stubLedger) BalanceOf(context.Context, models.Account) (*big.Int, error) {
	return big.NewInt(0), nil
}

type stubExchange struct{}

func (stubExchange) Quote(context.Context, models.Principal, *big.Int) (*big.Int, error) {
	return big.NewInt(2000), nil
}

func (stubExchange) Swap(context.Context, protocol.SwapArgs) (*big.Int, error) {
	return nil, &protocol.ExchangeError{Op: "swap", Kind: protocol.ExchangeQuoteExpired}
}

type stubBalances struct{}

func (stubBalances) BalancesOf(context.Context, models.Account) (models.Balances, error) {
	return models.Balances{Deposit: big.NewInt(1), Governance: big.NewInt(2)}, nil
}

func TestContributionPublisher_PublishesRunEvents(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := collect(t, bus,
		events.ContributionStartedEvent,
		events.ContributionStepCompletedEvent,
		events.ContributionFailedEvent,
	)

	config := contribution.DefaultConfig()
	config.StepDelay = 0

	logger := slog.New(slog.DiscardHandler)
	coordinator, err := contribution.NewCoordinator(logger, config,
		contribution.WithObservers(eventbus.NewContributionPublisher(logger, bus)),
		contribution.WithIDGenerator(func() string { return "run-1" }),
	)
	require.NoError(t, err)

	h, err := coordinator.Start(t.Context(), contribution.Request{
		Amount:       big.NewInt(10000),
		Account:      models.Account{Owner: models.Principal{0x01}},
		Exchange:     models.Account{Owner: models.Principal{0x02}},
		DepositAsset: models.Principal{0x03},
	}, contribution.Clients{Ledger: stubLedger{}, Exchange: stubExchange{}, Balances: stubBalances{}})
	require.NoError(t, err)

	_, err = h.RunAll(t.Context())
	require.True(t, contribution.IsRemoteRejection(err))

	started, ok := next(t, received).(*events.ContributionStarted)
	require.True(t, ok)
	assert.Equal(t, "run-1", started.RunID)
	assert.Equal(t, "10000", started.Amount)

	for _, name := range []string{"approve", "quote"} {
		step, ok := next(t, received).(*events.ContributionStepCompleted)
		require.True(t, ok)
		assert.Equal(t, name, step.StepName)
	}

	failed, ok := next(t, received).(*events.ContributionFailed)
	require.True(t, ok)
	assert.Equal(t, "swap", failed.StepName)
	assert.Equal(t, "remote_rejection", failed.ErrorKind)
	assert.True(t, failed.ApprovalGranted)
	assert.False(t, failed.OutcomeUnknown)
}

func TestCatalogPublisher_PublishesChanges(t *testing.T) {
	t.Parallel()

	bus := newBus(t)
	received := collect(t, bus,
		events.PluginInstalledEvent,
		events.PluginToggledEvent,
		events.PluginUninstalledEvent,
	)

	catalog := registry.DefaultCatalog(slog.New(slog.DiscardHandler))
	catalog.OnChange(eventbus.NewCatalogPublisher(slog.New(slog.DiscardHandler), bus).OnChange)

	_, err := catalog.Install(t.Context(), "dao-analytics")
	require.NoError(t, err)

	_, err = catalog.Toggle(t.Context(), "dao-analytics", false)
	require.NoError(t, err)

	_, err = catalog.Uninstall(t.Context(), "dao-analytics")
	require.NoError(t, err)

	installed, ok := next(t, received).(*events.PluginInstalled)
	require.True(t, ok)
	assert.Equal(t, "dao-analytics", installed.PluginID)

	toggled, ok := next(t, received).(*events.PluginToggled)
	require.True(t, ok)
	assert.False(t, toggled.Enabled)

	uninstalled, ok := next(t, received).(*events.PluginUninstalled)
	require.True(t, ok)
	assert.Equal(t, "dao-analytics", uninstalled.PluginID)
}
