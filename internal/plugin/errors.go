package plugin

import (
	"fmt"
	"strings"
)

// ErrPluginNotFound is returned when the requested plugin is not loaded.
type ErrPluginNotFound struct {
	Name string
}

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("plugin '%s' is not loaded\nHint: register the plugin configuration before applying it", e.Name)
}

// ErrMissingDependency is returned when a declared dependency is not loaded.
type ErrMissingDependency struct {
	Plugin     string
	Dependency string
}

func (e ErrMissingDependency) Error() string {
	return fmt.Sprintf(
		"plugin '%s' declares dependency '%s' which is not loaded\nHint: register the dependency before applying the plugin",
		e.Plugin,
		e.Dependency,
	)
}

// ErrCircularDependency is returned when adding a plugin would close a cycle.
type ErrCircularDependency struct {
	Cycle []string
}

func (e ErrCircularDependency) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected\nHint: review plugin dependencies to remove cycles"
	}

	sequence := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf(
		"circular dependency detected: %s\nHint: break the cycle by removing one of the dependencies",
		strings.Join(sequence, " -> "),
	)
}

// ErrVersionConflict is returned when a loaded dependency does not satisfy
// the constraint declared by its dependent.
type ErrVersionConflict struct {
	Plugin        string
	RequiredBy    string
	Constraint    string
	ActualVersion string
}

func (e ErrVersionConflict) Error() string {
	return fmt.Sprintf(
		"version conflict for plugin '%s': %s requires %s, loaded %s\nHint: align plugin versions or relax the constraint",
		e.Plugin,
		e.RequiredBy,
		e.Constraint,
		e.ActualVersion,
	)
}

// ErrSourceNotFound is returned when a plugin's source file does not exist.
type ErrSourceNotFound struct {
	Plugin string
	Path   string
}

func (e ErrSourceNotFound) Error() string {
	return fmt.Sprintf("plugin '%s' source %s does not exist or is a directory", e.Plugin, e.Path)
}

// ErrClassNotFound is returned when a resolver cannot produce the named class.
type ErrClassNotFound struct {
	Class  string
	Source string
}

func (e ErrClassNotFound) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("plugin class '%s' is not registered", e.Class)
	}
	return fmt.Sprintf("plugin class '%s' not found in %s", e.Class, e.Source)
}

// ErrAlreadyLoaded is returned when a plugin name is loaded twice.
type ErrAlreadyLoaded struct {
	Name string
}

func (e ErrAlreadyLoaded) Error() string {
	return fmt.Sprintf("plugin '%s' already loaded", e.Name)
}
