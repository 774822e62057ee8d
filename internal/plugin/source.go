package plugin

import (
	"time"
)

// PluginSource is a loaded plugin: its configuration plus the factory that
// produces instances. It does not change after the loader creates it.
type PluginSource struct {
	name         string
	dependencies []Dependency
	sourcePath   string
	className    string
	author       string
	version      string
	description  string
	factory      Factory
	loadedAt     time.Time
}

func newPluginSource(cfg PluginConfig, factory Factory, loadedAt time.Time) *PluginSource {
	return &PluginSource{
		name:         cfg.Name,
		dependencies: cfg.ParsedDependencies(),
		sourcePath:   cfg.SourcePath,
		className:    cfg.ClassName,
		author:       cfg.Author,
		version:      cfg.Version,
		description:  cfg.Description,
		factory:      factory,
		loadedAt:     loadedAt,
	}
}

// Name is the plugin_name the plugin is registered and scheduled under.
func (s *PluginSource) Name() string { return s.name }

// SourcePath is the file the plugin was loaded from.
func (s *PluginSource) SourcePath() string { return s.sourcePath }

// ClassName is the plugin_class the resolver looked up.
func (s *PluginSource) ClassName() string { return s.className }

// Author is the declared author, possibly empty.
func (s *PluginSource) Author() string { return s.author }

// Version is the declared semantic version, possibly empty.
func (s *PluginSource) Version() string { return s.version }

// Description is the declared free-text description.
func (s *PluginSource) Description() string { return s.description }

// LoadedAt is when the loader registered the plugin.
func (s *PluginSource) LoadedAt() time.Time { return s.loadedAt }

// Dependencies returns a copy of the declared dependencies.
func (s *PluginSource) Dependencies() []Dependency {
	return append([]Dependency(nil), s.dependencies...)
}

// DependencyNames returns the names of the declared dependencies in order.
func (s *PluginSource) DependencyNames() []string {
	names := make([]string, 0, len(s.dependencies))
	for _, dep := range s.dependencies {
		names = append(names, dep.Name)
	}
	return names
}

// NewInstance asks the factory for a fresh Plugin.
func (s *PluginSource) NewInstance() Plugin {
	return s.factory()
}
