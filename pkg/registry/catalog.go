// Package registry holds the organization plugin catalog: which plugins exist, which are
// installed, and which are shown in the member pages.
package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sudao/sudao/pkg/models"
)

type ChangeKind string

const (
	PluginInstalled   ChangeKind = "installed"
	PluginUninstalled ChangeKind = "uninstalled"
	PluginToggled     ChangeKind = "toggled"
)

// Change describes one catalog mutation. Plugin is the entry after the change.
type Change struct {
	Kind   ChangeKind
	Plugin models.Plugin
}

// ChangeListener is called after a mutation, outside the catalog lock.
type ChangeListener func(ctx context.Context, change Change)

type Catalog struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	order     []string
	plugins   map[string]*models.Plugin
	listeners []ChangeListener
}

// NewCatalog builds a catalog from the given entries, preserving their order.
// Entries are validated for unique ids, known dependencies and installed core plugins.
func NewCatalog(logger *slog.Logger, plugins []models.Plugin) (*Catalog, error) {
	c := &Catalog{
		logger:  logger.With("module", "plugin_catalog"),
		order:   make([]string, 0, len(plugins)),
		plugins: make(map[string]*models.Plugin, len(plugins)),
	}

	for _, p := range plugins {
		if _, exists := c.plugins[p.ID]; exists {
			return nil, newPluginError("load", p.ID, "", ErrDuplicatePlugin)
		}

		if p.Core && !p.Installed {
			return nil, newPluginError("load", p.ID, "", ErrCoreNotInstalled)
		}

		entry := p.Clone()
		entry.ShowInMyPages = entry.ShowInMyPages && entry.Installed && entry.Enabled
		c.order = append(c.order, p.ID)
		c.plugins[p.ID] = &entry
	}

	for _, id := range c.order {
		for _, dep := range c.plugins[id].Dependencies {
			if _, ok := c.plugins[dep]; !ok {
				return nil, newPluginError("load", id, dep, ErrUnknownDependency)
			}
		}
	}

	return c, nil
}

// OnChange registers a listener for every successful mutation.
func (c *Catalog) OnChange(listener ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, listener)
}

// Plugins returns copies of every entry in catalog order.
func (c *Catalog) Plugins() []models.Plugin {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Plugin, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plugins[id].Clone())
	}

	return out
}

// Installed returns the installed entries in catalog order.
func (c *Catalog) Installed() []models.Plugin {
	all := c.Plugins()

	return slices.DeleteFunc(all, func(p models.Plugin) bool { return !p.Installed })
}

func (c *Catalog) Plugin(id string) (models.Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plugins[id]
	if !ok {
		return models.Plugin{}, newPluginError("get", id, "", ErrPluginNotFound)
	}

	return p.Clone(), nil
}

// Install marks the plugin installed and enabled. Every dependency must already be
// installed. Installing an installed plugin is a no-op that still reports the entry.
func (c *Catalog) Install(ctx context.Context, id string) (models.Plugin, error) {
	c.mu.Lock()

	p, ok := c.plugins[id]
	if !ok {
		c.mu.Unlock()

		return models.Plugin{}, newPluginError("install", id, "", ErrPluginNotFound)
	}

	for _, dep := range p.Dependencies {
		if !c.plugins[dep].Installed {
			c.mu.Unlock()

			return models.Plugin{}, newPluginError("install", id, dep, ErrMissingDependency)
		}
	}

	changed := !p.Installed || !p.Enabled
	p.Installed = true
	p.Enabled = true
	result := p.Clone()
	listeners := c.listeners
	c.mu.Unlock()

	if changed {
		c.logger.InfoContext(ctx, "Plugin installed", "plugin_id", id)
		c.notify(ctx, listeners, Change{Kind: PluginInstalled, Plugin: result})
	}

	return result, nil
}

// Uninstall clears installed, enabled and show-in-my-pages. Core plugins and plugins
// that an installed plugin depends on are refused.
func (c *Catalog) Uninstall(ctx context.Context, id string) (models.Plugin, error) {
	c.mu.Lock()

	p, ok := c.plugins[id]
	if !ok {
		c.mu.Unlock()

		return models.Plugin{}, newPluginError("uninstall", id, "", ErrPluginNotFound)
	}

	if p.Core {
		c.mu.Unlock()

		return models.Plugin{}, newPluginError("uninstall", id, "", ErrPluginCore)
	}

	if dependent := c.installedDependentLocked(id); dependent != "" {
		c.mu.Unlock()

		return models.Plugin{}, newPluginError("uninstall", id, dependent, ErrDependentInstalled)
	}

	changed := p.Installed
	p.Installed = false
	p.Enabled = false
	p.ShowInMyPages = false
	result := p.Clone()
	listeners := c.listeners
	c.mu.Unlock()

	if changed {
		c.logger.InfoContext(ctx, "Plugin uninstalled", "plugin_id", id)
		c.notify(ctx, listeners, Change{Kind: PluginUninstalled, Plugin: result})
	}

	return result, nil
}

// Toggle sets enabled; the plugin shows in the member pages only when it is both
// enabled and installed.
func (c *Catalog) Toggle(ctx context.Context, id string, enabled bool) (models.Plugin, error) {
	c.mu.Lock()

	p, ok := c.plugins[id]
	if !ok {
		c.mu.Unlock()

		return models.Plugin{}, newPluginError("toggle", id, "", ErrPluginNotFound)
	}

	p.Enabled = enabled
	p.ShowInMyPages = enabled && p.Installed
	result := p.Clone()
	listeners := c.listeners
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Plugin toggled", "plugin_id", id, "enabled", enabled)
	c.notify(ctx, listeners, Change{Kind: PluginToggled, Plugin: result})

	return result, nil
}

func (c *Catalog) installedDependentLocked(id string) string {
	for _, other := range c.order {
		p := c.plugins[other]
		if p.Installed && slices.Contains(p.Dependencies, id) {
			return other
		}
	}

	return ""
}

func (c *Catalog) notify(ctx context.Context, listeners []ChangeListener, change Change) {
	for _, listener := range listeners {
		listener(ctx, change)
	}
}
