package registry

import (
	"errors"
	"fmt"
)

var (
	ErrPluginNotFound     = errors.New("plugin not found")
	ErrPluginCore         = errors.New("core plugins cannot be uninstalled")
	ErrMissingDependency  = errors.New("plugin dependency is not installed")
	ErrDependentInstalled = errors.New("an installed plugin depends on this plugin")
	ErrInvalidManifest    = errors.New("invalid plugin manifest")
	ErrDuplicatePlugin    = errors.New("duplicate plugin id")
	ErrUnknownDependency  = errors.New("plugin depends on an unknown plugin")
	ErrCoreNotInstalled   = errors.New("core plugins must be installed")
)

// PluginError carries the catalog operation and plugin involved in a failure.
type PluginError struct {
	Op       string
	PluginID string
	Related  string
	Err      error
}

func (e *PluginError) Error() string {
	if e.Related != "" {
		return fmt.Sprintf("%s plugin %s: %v (%s)", e.Op, e.PluginID, e.Err, e.Related)
	}

	return fmt.Sprintf("%s plugin %s: %v", e.Op, e.PluginID, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

func newPluginError(op, pluginID, related string, err error) *PluginError {
	return &PluginError{Op: op, PluginID: pluginID, Related: related, Err: err}
}

func IsPluginNotFound(err error) bool {
	return errors.Is(err, ErrPluginNotFound)
}

// IsConflict reports errors caused by the current install state rather than bad input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPluginCore) ||
		errors.Is(err, ErrMissingDependency) ||
		errors.Is(err, ErrDependentInstalled)
}
