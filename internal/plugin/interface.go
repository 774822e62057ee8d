package plugin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gailbot/gailbot/internal/config"
)

// Plugin is one analysis step applied to a set of sources.
//
// Apply receives the Data of every declared dependency keyed by dependency
// name. WasSuccessful reports whether the most recent Apply produced usable
// output; a plugin may return a nil error and still report false.
type Plugin interface {
	Apply(ctx context.Context, deps map[string]any, cfg ApplyConfig) (*Result, error)
	WasSuccessful() bool
}

// Factory creates a fresh Plugin instance. Every ApplyPlugins run asks the
// factory for a new instance.
type Factory func() Plugin

// Result is what a plugin hands back after Apply.
type Result struct {
	// SourceToOutput maps each consumed source to the file written for it.
	SourceToOutput map[string]string
	// Data is passed to dependents under the plugin's name.
	Data any
}

// ApplyConfig holds the per-run parameters of one plugin.
type ApplyConfig struct {
	Sources   []string       `yaml:"sources" json:"sources"`
	OutputDir string         `yaml:"output_dir" json:"output_dir" validate:"required"`
	Options   map[string]any `yaml:"options" json:"options"`
}

// Validate checks the required fields.
func (c ApplyConfig) Validate() error {
	return config.ValidateStruct(&c)
}

// FloatOption returns Options[key] as a float64, or def when it is absent.
func (c ApplyConfig) FloatOption(key string, def float64) (float64, error) {
	raw, ok := c.Options[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("option %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("option %s: unsupported type %T", key, raw)
	}
}
