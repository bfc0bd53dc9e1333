package cmd

import (
	"log/slog"

	"github.com/sudao/sudao/pkg/eventbus"
	"github.com/sudao/sudao/pkg/registry"
)

// NewCatalog loads the plugin catalog from manifestPath, or the built-in catalog when
// the path is empty, and publishes its changes on bus when one is given.
func NewCatalog(logger *slog.Logger, manifestPath string, bus eventbus.EventPublisher) (*registry.Catalog, error) {
	catalog, err := registry.LoadCatalog(logger, manifestPath)
	if err != nil {
		return nil, err
	}

	if bus != nil {
		catalog.OnChange(eventbus.NewCatalogPublisher(logger, bus).OnChange)
	}

	logger.Info("Plugin catalog loaded", "plugins", len(catalog.Plugins()), "manifest", manifestPath)

	return catalog, nil
}
