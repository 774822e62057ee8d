package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gailbot/gailbot/internal/config"
	"github.com/gailbot/gailbot/internal/logger"
	"github.com/gailbot/gailbot/internal/plugin"
	"github.com/gailbot/gailbot/internal/plugins/builtin"
)

// app holds what every command needs once settings are resolved.
type app struct {
	settings *config.Settings
	log      *logger.Logger
	manager  *plugin.Manager
}

// executable is where the builtin plugins claim to come from.
var executable = os.Executable

// loadApp resolves settings, builds the logger and registers the builtin
// plugins plus every configuration found in the configured plugin
// directories and extraDirs. The result is cached on flags.
func (f *rootFlags) loadApp(logOut io.Writer, extraDirs ...string) (*app, error) {
	if f.app != nil {
		return f.app, nil
	}

	settings, err := config.Load(f.configPath)
	if err != nil {
		return nil, newCommandError("load settings", f.configPath, err, "Fix the settings file or the GAILBOT_* environment variables.")
	}

	level := settings.LogLevel
	if f.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: settings.HumanReadable, Writer: logOut})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	factories := plugin.NewFactoryResolver()
	if err := builtin.Register(factories); err != nil {
		return nil, fmt.Errorf("register builtin plugins: %w", err)
	}
	loader := plugin.NewLoader(plugin.ChainResolver{plugin.SharedObjectResolver{}, factories}, log)

	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if err := builtin.Load(loader, exe); err != nil {
		return nil, fmt.Errorf("load builtin plugins: %w", err)
	}

	manager := plugin.NewManager(loader,
		plugin.WithWorkers(settings.Workers),
		plugin.WithLogger(log),
		plugin.WithConfigExtensions(settings.Extensions...),
	)
	for _, dir := range append(append([]string{}, settings.PluginDirs...), extraDirs...) {
		manager.RegisterPluginsFromDirectory(dir, settings.Recurse)
	}

	f.app = &app{settings: settings, log: log, manager: manager}
	return f.app, nil
}
