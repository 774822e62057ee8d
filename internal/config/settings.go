package config

import (
	"strings"

	"github.com/spf13/viper"

	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GAILBOT"

// Settings holds the application-level knobs of the plugin runner.
type Settings struct {
	Workers       int      `mapstructure:"workers" validate:"min=1,max=64"`
	PluginDirs    []string `mapstructure:"plugin_dirs" validate:"dive,required"`
	Recurse       bool     `mapstructure:"recurse"`
	Extensions    []string `mapstructure:"extensions" validate:"min=1,dive,startswith=."`
	LogLevel      string   `mapstructure:"log_level" validate:"log_level"`
	HumanReadable bool     `mapstructure:"human_readable"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Workers:       4,
		PluginDirs:    []string{},
		Recurse:       true,
		Extensions:    []string{".yaml", ".yml", ".json"},
		LogLevel:      "info",
		HumanReadable: true,
	}
}

// Load resolves settings from defaults, then the optional file at path, then
// GAILBOT_* environment variables (GAILBOT_WORKERS, GAILBOT_PLUGIN_DIRS, ...).
// List values in the environment are comma separated.
func Load(path string) (*Settings, error) {
	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("plugin_dirs", defaults.PluginDirs)
	v.SetDefault("recurse", defaults.Recurse)
	v.SetDefault("extensions", defaults.Extensions)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("human_readable", defaults.HumanReadable)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, gailboterrors.NewParseError(gailboterrors.DocumentSettings, path, extractLine(err), err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, gailboterrors.NewParseError(gailboterrors.DocumentSettings, path, 0, err)
	}

	settings.LogLevel = strings.ToLower(settings.LogLevel)
	if err := ValidateStruct(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
