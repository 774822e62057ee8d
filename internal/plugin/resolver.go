package plugin

import (
	"errors"
	"fmt"
	"path/filepath"
	goplugin "plugin"
	"sort"
	"sync"
)

// Resolver turns a plugin configuration into a Factory.
type Resolver interface {
	Resolve(cfg PluginConfig) (Factory, error)
}

// FactoryResolver resolves classes compiled into the binary.
type FactoryResolver struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var _ Resolver = (*FactoryResolver)(nil)

// NewFactoryResolver returns an empty FactoryResolver.
func NewFactoryResolver() *FactoryResolver {
	return &FactoryResolver{factories: make(map[string]Factory)}
}

// Register binds class to factory. Registering the same class twice is an error.
func (r *FactoryResolver) Register(class string, factory Factory) error {
	if class == "" {
		return fmt.Errorf("plugin class name is required")
	}
	if factory == nil {
		return fmt.Errorf("plugin class '%s' has a nil factory", class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[class]; exists {
		return fmt.Errorf("plugin class '%s' already registered", class)
	}
	r.factories[class] = factory
	return nil
}

// MustRegister panics if Register fails.
func (r *FactoryResolver) MustRegister(class string, factory Factory) {
	if err := r.Register(class, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory registered for cfg.ClassName.
func (r *FactoryResolver) Resolve(cfg PluginConfig) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[cfg.ClassName]
	if !ok {
		return nil, ErrClassNotFound{Class: cfg.ClassName}
	}
	return factory, nil
}

// Classes lists the registered class names.
func (r *FactoryResolver) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]string, 0, len(r.factories))
	for class := range r.factories {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// SharedObjectResolver opens plugin_source as a Go plugin (.so) and looks up
// plugin_class in it. The symbol may be a Factory, a func() Plugin, or a
// variable holding a Plugin.
type SharedObjectResolver struct{}

var _ Resolver = SharedObjectResolver{}

// Resolve implements Resolver.
func (SharedObjectResolver) Resolve(cfg PluginConfig) (Factory, error) {
	if filepath.Ext(cfg.SourcePath) != ".so" {
		return nil, ErrClassNotFound{Class: cfg.ClassName, Source: cfg.SourcePath}
	}

	lib, err := goplugin.Open(cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SourcePath, err)
	}
	sym, err := lib.Lookup(cfg.ClassName)
	if err != nil {
		return nil, ErrClassNotFound{Class: cfg.ClassName, Source: cfg.SourcePath}
	}
	return factoryFromSymbol(cfg, sym)
}

func factoryFromSymbol(cfg PluginConfig, sym any) (Factory, error) {
	switch v := sym.(type) {
	case Factory:
		return v, nil
	case func() Plugin:
		return v, nil
	case *Factory:
		if *v == nil {
			break
		}
		return *v, nil
	case *func() Plugin:
		if *v == nil {
			break
		}
		return *v, nil
	case Plugin:
		return func() Plugin { return v }, nil
	}
	return nil, fmt.Errorf("symbol %s in %s is %T, not a plugin factory", cfg.ClassName, cfg.SourcePath, sym)
}

// ChainResolver tries each resolver in order and returns the first match.
type ChainResolver []Resolver

var _ Resolver = ChainResolver(nil)

// Resolve implements Resolver.
func (c ChainResolver) Resolve(cfg PluginConfig) (Factory, error) {
	var errs []error
	for _, r := range c {
		factory, err := r.Resolve(cfg)
		if err == nil {
			return factory, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrClassNotFound{Class: cfg.ClassName, Source: cfg.SourcePath}
	}
	return nil, errors.Join(errs...)
}
