package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// PreProcessor turns the inputs of a component into the value handed to its
// processor. inputs holds BaseKey plus one entry per dependency name.
type PreProcessor func(inputs map[string]*Stream) (any, error)

// Processor invokes the component's instantiated object on the pre-processed input.
type Processor func(ctx context.Context, object any, input any) (any, error)

// PostProcessor wraps the processor output into the Stream published to dependents.
type PostProcessor func(output any) (*Stream, error)

// Logic binds component names to their processing chain.
type Logic interface {
	PreProcessor(name string) (PreProcessor, error)
	Processor(name string) (Processor, error)
	PostProcessor(name string) (PostProcessor, error)
	IsComponentSupported(name string) bool
}

type componentLogic struct {
	pre  PreProcessor
	proc Processor
	post PostProcessor
}

// Registry is the map-backed Logic. Domain logics embed it and call
// AddComponentLogic for every name they support. The zero value is ready to
// use and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]componentLogic
}

var _ Logic = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]componentLogic)}
}

// AddComponentLogic registers the processing chain for name, replacing any
// previous registration. All three callables are required.
func (r *Registry) AddComponentLogic(name string, pre PreProcessor, proc Processor, post PostProcessor) error {
	if name == "" {
		return fmt.Errorf("%w: empty component name", ErrInvalidLogic)
	}
	if pre == nil || proc == nil || post == nil {
		return fmt.Errorf("%w: %q requires a pre-processor, processor and post-processor", ErrInvalidLogic, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]componentLogic)
	}
	r.entries[name] = componentLogic{pre: pre, proc: proc, post: post}
	return nil
}

// PreProcessor returns the pre-processor registered for name.
func (r *Registry) PreProcessor(name string) (PreProcessor, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.pre, nil
}

// Processor returns the processor registered for name.
func (r *Registry) Processor(name string) (Processor, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.proc, nil
}

// PostProcessor returns the post-processor registered for name.
func (r *Registry) PostProcessor(name string) (PostProcessor, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.post, nil
}

// IsComponentSupported reports whether name has a registered chain.
func (r *Registry) IsComponentSupported(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

// Names lists the supported component names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (componentLogic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return componentLogic{}, fmt.Errorf("%w: %q", ErrUnregisteredComponent, name)
	}
	return entry, nil
}
