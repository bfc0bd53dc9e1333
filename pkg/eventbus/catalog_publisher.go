package eventbus

import (
	"context"
	"log/slog"

	"github.com/sudao/sudao/pkg/events"
	"github.com/sudao/sudao/pkg/registry"
)

// CatalogPublisher publishes plugin catalog changes keyed by plugin ID.
type CatalogPublisher struct {
	logger *slog.Logger
	bus    EventPublisher
}

func NewCatalogPublisher(logger *slog.Logger, bus EventPublisher) *CatalogPublisher {
	return &CatalogPublisher{
		logger: logger.With("module", "catalog_publisher"),
		bus:    bus,
	}
}

// OnChange matches registry.ChangeListener.
func (p *CatalogPublisher) OnChange(ctx context.Context, change registry.Change) {
	event := catalogEvent(change)
	if event == nil {
		return
	}

	err := p.bus.Publish(ctx, change.Plugin.ID, event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish catalog event",
			"plugin_id", change.Plugin.ID,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func catalogEvent(change registry.Change) Event {
	id := change.Plugin.ID

	switch change.Kind {
	case registry.PluginInstalled:
		return events.PluginInstalled{
			BaseEvent: events.NewBaseEvent(events.PluginInstalledEvent, ""),
			PluginID:  id,
		}
	case registry.PluginUninstalled:
		return events.PluginUninstalled{
			BaseEvent: events.NewBaseEvent(events.PluginUninstalledEvent, ""),
			PluginID:  id,
		}
	case registry.PluginToggled:
		return events.PluginToggled{
			BaseEvent: events.NewBaseEvent(events.PluginToggledEvent, ""),
			PluginID:  id,
			Enabled:   change.Plugin.Enabled,
		}
	default:
		return nil
	}
}
