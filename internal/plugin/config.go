package plugin

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gailbot/gailbot/internal/config"
	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

// PluginConfig describes one plugin as written in its configuration file.
type PluginConfig struct {
	Name         string   `yaml:"plugin_name" json:"plugin_name" validate:"required,plugin_name"`
	Dependencies []string `yaml:"plugin_dependencies" json:"plugin_dependencies" validate:"dive,required"`
	SourcePath   string   `yaml:"plugin_source" json:"plugin_source" validate:"required"`
	ClassName    string   `yaml:"plugin_class" json:"plugin_class" validate:"required"`
	Author       string   `yaml:"author,omitempty" json:"author,omitempty"`
	Version      string   `yaml:"version,omitempty" json:"version,omitempty" validate:"omitempty,semver"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// ParseConfigFile reads a YAML or JSON plugin configuration. A relative
// plugin_source is resolved against the directory holding the file.
func ParseConfigFile(path string) (*PluginConfig, error) {
	var cfg PluginConfig
	if err := config.DecodeFile(gailboterrors.DocumentPluginConfig, path, &cfg); err != nil {
		return nil, err
	}
	if cfg.SourcePath != "" && !filepath.IsAbs(cfg.SourcePath) {
		cfg.SourcePath = filepath.Join(filepath.Dir(path), cfg.SourcePath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfigData builds a PluginConfig from an already decoded document,
// using the same field names as the configuration file.
func ParseConfigData(data map[string]any) (*PluginConfig, error) {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return nil, gailboterrors.NewParseError(gailboterrors.DocumentPluginConfig, "<data>", 0, err)
	}

	var cfg PluginConfig
	if err := config.Decode(gailboterrors.DocumentPluginConfig, "<data>", raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the dependency list: every entry must
// parse, and a plugin may neither depend on itself nor list a dependency twice.
func (c *PluginConfig) Validate() error {
	if err := config.ValidateStruct(c); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Dependencies))
	for _, raw := range c.Dependencies {
		dep, err := ParseDependency(raw)
		if err != nil {
			return gailboterrors.NewValidationError(gailboterrors.DocumentPluginConfig, "plugin_dependencies",
				fmt.Sprintf("entry '%s' is malformed: %v", raw, err), err)
		}
		if dep.Name == c.Name {
			return gailboterrors.NewValidationError(gailboterrors.DocumentPluginConfig, "plugin_dependencies",
				fmt.Sprintf("names the plugin itself ('%s')", c.Name), nil)
		}
		if _, dup := seen[dep.Name]; dup {
			return gailboterrors.NewValidationError(gailboterrors.DocumentPluginConfig, "plugin_dependencies",
				fmt.Sprintf("lists '%s' twice", dep.Name), nil)
		}
		seen[dep.Name] = struct{}{}
	}
	return nil
}

// ParsedDependencies returns the dependency list with constraints split out.
// It assumes Validate succeeded.
func (c *PluginConfig) ParsedDependencies() []Dependency {
	deps := make([]Dependency, 0, len(c.Dependencies))
	for _, raw := range c.Dependencies {
		dep, err := ParseDependency(raw)
		if err != nil {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}
