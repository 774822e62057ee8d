package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gailbot/gailbot/internal/logger"
)

const (
	// BaseKey is the input key under which every pre-processor receives the base input.
	BaseKey = "base"

	// DefaultWorkers is the worker pool size used when none is configured.
	DefaultWorkers = 4

	tracerName = "github.com/gailbot/gailbot/internal/pipeline"
)

// Pipeline owns the dependency graph, the attached Logic and the base input.
// It is not safe for concurrent use; Execute blocks until every layer is done.
type Pipeline struct {
	name       string
	workers    int
	log        *logger.Logger
	tracer     trace.Tracer
	logic      Logic
	base       *Stream
	deps       graph.Graph[string, string]
	components map[string]*Component
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the number of components running at once. Values below
// one fall back to DefaultWorkers.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = DefaultWorkers
		}
		p.workers = n
	}
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithName labels the pipeline in logs and spans.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		name:    "pipeline",
		workers: DefaultWorkers,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clear()
	return p
}

func newDependencyGraph() graph.Graph[string, string] {
	return graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
}

func (p *Pipeline) clear() {
	p.logic = nil
	p.base = NewStream(nil)
	p.deps = newDependencyGraph()
	p.components = make(map[string]*Component)
}

// SetLogic attaches the Logic that defines how each component runs.
func (p *Pipeline) SetLogic(logic Logic) {
	p.logic = logic
}

// SetBaseInput makes data available to every pre-processor under BaseKey.
func (p *Pipeline) SetBaseInput(data any) {
	p.base = NewStream(data)
}

// AddComponent registers name with its instantiated object and the names it
// depends on. Configuration problems are returned as errors and leave the
// graph untouched. An insertion that would close a cycle is rolled back and
// reported as (false, nil).
func (p *Pipeline) AddComponent(name string, object any, dependencies ...string) (bool, error) {
	if p.logic == nil {
		return false, ErrUndefinedLogic
	}
	if name == BaseKey {
		return false, fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if _, exists := p.components[name]; exists {
		return false, fmt.Errorf("%w: %q", ErrDuplicateComponent, name)
	}

	deps := uniqueNames(dependencies)
	for _, dep := range deps {
		if dep == name {
			return false, fmt.Errorf("%w: %q", ErrSelfDependency, name)
		}
	}
	for _, dep := range deps {
		if _, exists := p.components[dep]; !exists {
			return false, fmt.Errorf("%w: %q depends on unregistered %q", ErrInvalidSourceComponent, name, dep)
		}
	}
	if !p.logic.IsComponentSupported(name) {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedComponent, name)
	}

	if err := p.deps.AddVertex(name); err != nil {
		return false, fmt.Errorf("add component %q: %w", name, err)
	}

	added := make([]string, 0, len(deps))
	for _, dep := range deps {
		err := p.deps.AddEdge(name, dep)
		if err == nil {
			added = append(added, dep)
			continue
		}

		if rollbackErr := p.rollback(name, added); rollbackErr != nil {
			return false, errors.Join(err, rollbackErr)
		}
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			p.log.WithFields(map[string]any{"component": name, "dependency": dep}).Warn("rejected component: dependency would create a cycle")
			return false, nil
		}
		return false, fmt.Errorf("add dependency %q -> %q: %w", name, dep, err)
	}

	p.components[name] = newComponent(name, object)
	return true, nil
}

// AddDependency adds an edge between two registered components. An edge that
// would close a cycle is rejected with (false, nil) and the graph is left as it was.
func (p *Pipeline) AddDependency(name, dependency string) (bool, error) {
	if _, ok := p.components[name]; !ok {
		return false, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	if _, ok := p.components[dependency]; !ok {
		return false, fmt.Errorf("%w: %q depends on unregistered %q", ErrInvalidSourceComponent, name, dependency)
	}
	if name == dependency {
		return false, fmt.Errorf("%w: %q", ErrSelfDependency, name)
	}

	err := p.deps.AddEdge(name, dependency)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return true, nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return false, nil
	default:
		return false, fmt.Errorf("add dependency %q -> %q: %w", name, dependency, err)
	}
}

func (p *Pipeline) rollback(name string, added []string) error {
	for _, dep := range added {
		if err := p.deps.RemoveEdge(name, dep); err != nil {
			return fmt.Errorf("roll back edge %q -> %q: %w", name, dep, err)
		}
	}
	if err := p.deps.RemoveVertex(name); err != nil {
		return fmt.Errorf("roll back component %q: %w", name, err)
	}
	return nil
}

// ComponentDependencies returns the sorted names name depends on.
func (p *Pipeline) ComponentDependencies(name string) ([]string, error) {
	if _, ok := p.components[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	adjacency, err := p.deps.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("read dependency graph: %w", err)
	}
	return sortedKeys(adjacency[name]), nil
}

// ComponentNames returns every registered name in sorted order.
func (p *Pipeline) ComponentNames() []string {
	return sortedKeys(p.components)
}

// Component returns the registered component.
func (p *Pipeline) Component(name string) (*Component, error) {
	c, ok := p.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}
	return c, nil
}

// Reset drops the graph, the components, the Logic and the base input.
func (p *Pipeline) Reset() {
	p.clear()
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
