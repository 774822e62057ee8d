package plugin

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gailbot/gailbot/internal/logger"
	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

// Loader turns plugin configurations into PluginSources and keeps them by
// name. It is safe for concurrent use.
type Loader struct {
	resolver Resolver
	log      *logger.Logger
	now      func() time.Time

	mu      sync.RWMutex
	plugins map[string]*PluginSource
}

// NewLoader creates a Loader that resolves classes through resolver.
func NewLoader(resolver Resolver, log *logger.Logger) *Loader {
	return &Loader{
		resolver: resolver,
		log:      log,
		now:      time.Now,
		plugins:  make(map[string]*PluginSource),
	}
}

// LoadPluginUsingConfig loads cfg and reports whether it was registered. The
// cause of a failure is logged.
func (l *Loader) LoadPluginUsingConfig(cfg PluginConfig) bool {
	if err := l.LoadPlugin(cfg); err != nil {
		l.log.WithFields(map[string]any{
			"plugin": cfg.Name,
			"source": cfg.SourcePath,
			"class":  cfg.ClassName,
		}).Error(err, "failed to load plugin")
		return false
	}
	return true
}

// LoadPlugin validates cfg, checks that its source exists, resolves its class
// and registers the result. Nothing is registered on failure.
func (l *Loader) LoadPlugin(cfg PluginConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	info, err := os.Stat(cfg.SourcePath)
	if err != nil || info.IsDir() {
		return ErrSourceNotFound{Plugin: cfg.Name, Path: cfg.SourcePath}
	}

	if l.resolver == nil {
		return gailboterrors.NewPluginError(cfg.Name, "resolve", fmt.Errorf("no resolver configured"))
	}
	factory, err := l.resolver.Resolve(cfg)
	if err != nil {
		return gailboterrors.NewPluginError(cfg.Name, "resolve", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.plugins[cfg.Name]; exists {
		return ErrAlreadyLoaded{Name: cfg.Name}
	}
	l.plugins[cfg.Name] = newPluginSource(cfg, factory, l.now())

	l.log.WithFields(map[string]any{
		"plugin":  cfg.Name,
		"class":   cfg.ClassName,
		"version": cfg.Version,
	}).Debug("plugin loaded")
	return nil
}

// Plugin returns the loaded plugin called name.
func (l *Loader) Plugin(name string) (*PluginSource, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src, ok := l.plugins[name]
	return src, ok
}

// IsPluginLoaded reports whether name has been loaded.
func (l *Loader) IsPluginLoaded(name string) bool {
	_, ok := l.Plugin(name)
	return ok
}

// AllPlugins returns every loaded plugin sorted by name.
func (l *Loader) AllPlugins() []*PluginSource {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*PluginSource, 0, len(l.plugins))
	for _, src := range l.plugins {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
