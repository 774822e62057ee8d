package plugin

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gailbot/gailbot/internal/logger"
	"github.com/gailbot/gailbot/internal/pipeline"
	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

const tracerName = "github.com/gailbot/gailbot/internal/plugin"

// DefaultConfigExtensions are the file extensions scanned for plugin configurations.
var DefaultConfigExtensions = []string{".yaml", ".yml", ".json"}

// Manager registers plugins through a Loader and applies them, building a
// fresh pipeline for every ApplyPlugins call.
type Manager struct {
	loader     *Loader
	workers    int
	log        *logger.Logger
	tracer     trace.Tracer
	extensions []string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithWorkers bounds how many plugins run at once.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		m.workers = n
	}
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithConfigExtensions sets the extensions RegisterPluginsFromDirectory
// considers. Extensions are matched case-insensitively.
func WithConfigExtensions(exts ...string) ManagerOption {
	return func(m *Manager) {
		if len(exts) == 0 {
			return
		}
		m.extensions = make([]string, 0, len(exts))
		for _, ext := range exts {
			m.extensions = append(m.extensions, strings.ToLower(ext))
		}
	}
}

// NewManager creates a Manager on top of loader.
func NewManager(loader *Loader, opts ...ManagerOption) *Manager {
	m := &Manager{
		loader:     loader,
		workers:    pipeline.DefaultWorkers,
		tracer:     otel.Tracer(tracerName),
		extensions: slices.Clone(DefaultConfigExtensions),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterPluginsFromDirectory registers every configuration file under dir
// and returns how many were loaded. Subdirectories are only visited when
// recurse is set.
func (m *Manager) RegisterPluginsFromDirectory(dir string, recurse bool) int {
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recurse {
				return fs.SkipDir
			}
			return nil
		}
		if !slices.Contains(m.extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		if m.RegisterPluginUsingConfigFile(path) {
			loaded++
		}
		return nil
	})
	if err != nil {
		m.log.With("dir", dir).Error(err, "failed to scan plugin directory")
	}

	m.log.WithFields(map[string]any{"dir": dir, "loaded": loaded}).Info("plugin directory scanned")
	return loaded
}

// RegisterPluginUsingConfigFile parses the configuration at path and loads it.
func (m *Manager) RegisterPluginUsingConfigFile(path string) bool {
	cfg, err := ParseConfigFile(path)
	if err != nil {
		m.log.With("path", path).Error(err, "invalid plugin configuration")
		return false
	}
	return m.loader.LoadPluginUsingConfig(*cfg)
}

// RegisterPluginUsingConfigData loads a configuration given as a decoded document.
func (m *Manager) RegisterPluginUsingConfigData(data map[string]any) bool {
	cfg, err := ParseConfigData(data)
	if err != nil {
		m.log.Error(err, "invalid plugin configuration")
		return false
	}
	return m.loader.LoadPluginUsingConfig(*cfg)
}

// IsPluginLoaded reports whether name has been registered.
func (m *Manager) IsPluginLoaded(name string) bool {
	return m.loader.IsPluginLoaded(name)
}

// Plugins returns every registered plugin sorted by name.
func (m *Manager) Plugins() []*PluginSource {
	return m.loader.AllPlugins()
}

// DependencyClosure returns names plus everything they transitively depend
// on, dependencies first.
func (m *Manager) DependencyClosure(names ...string) ([]string, error) {
	b := newClosureBuilder(m.loader)
	for _, name := range names {
		if err := b.visit(name, "", nil); err != nil {
			return nil, err
		}
	}
	out := make([]string, 0, len(b.order))
	for _, src := range b.order {
		out = append(out, src.Name())
	}
	return out, nil
}

// ApplyPlugins runs the requested plugins and their dependencies. applyConfigs
// is keyed by plugin name and becomes the base input of the run, so every
// plugin in the dependency closure needs an entry. The summary covers exactly
// the keys of applyConfigs.
func (m *Manager) ApplyPlugins(ctx context.Context, applyConfigs map[string]ApplyConfig) *PluginManagerSummary {
	start := time.Now()
	runID := uuid.NewString()
	log := m.log.With("run_id", runID)

	requested := make([]string, 0, len(applyConfigs))
	for name := range applyConfigs {
		requested = append(requested, name)
	}
	sort.Strings(requested)

	ctx, span := m.tracer.Start(ctx, "plugin.apply", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.StringSlice("plugins.requested", requested),
	))
	defer span.End()

	summary := &PluginManagerSummary{
		RunID:             runID,
		SuccessfulPlugins: []string{},
		FailedPlugins:     []string{},
		PluginSummaries:   make(map[string]PluginExecutionSummary, len(requested)),
	}

	p, err := m.buildPipeline(log, requested)
	if err != nil {
		log.Error(err, "failed to build plugin pipeline")
		span.RecordError(err)
		span.SetStatus(codes.Error, "build")
		for _, name := range requested {
			summary.record(name, failedSummary(err))
		}
		return m.finish(log, span, summary, start)
	}
	p.SetBaseInput(applyConfigs)

	execErr := p.Execute(ctx)
	if execErr != nil {
		log.Error(execErr, "plugin pipeline stopped early")
		span.RecordError(execErr)
		span.SetStatus(codes.Error, "execute")
	}

	components := p.ExecutionSummary()
	for _, name := range requested {
		summary.record(name, convertComponent(components[name], execErr))
	}
	return m.finish(log, span, summary, start)
}

func (m *Manager) buildPipeline(log *logger.Logger, requested []string) (*pipeline.Pipeline, error) {
	b := newClosureBuilder(m.loader)
	for _, name := range requested {
		if err := b.visit(name, "", nil); err != nil {
			return nil, err
		}
	}

	logic := NewPluginLogic()
	p := pipeline.New(
		pipeline.WithWorkers(m.workers),
		pipeline.WithLogger(log),
		pipeline.WithTracer(m.tracer),
		pipeline.WithName("plugins"),
	)
	p.SetLogic(logic)

	for _, src := range b.order {
		if err := logic.Bind(src); err != nil {
			return nil, gailboterrors.NewPluginError(src.Name(), "bind", err)
		}
		instance := src.NewInstance()
		if instance == nil {
			return nil, gailboterrors.NewPluginError(src.Name(), "instantiate", fmt.Errorf("factory returned no plugin"))
		}
		ok, err := p.AddComponent(src.Name(), instance, src.DependencyNames()...)
		if err != nil {
			return nil, gailboterrors.NewPluginError(src.Name(), "schedule", err)
		}
		if !ok {
			return nil, ErrCircularDependency{Cycle: append([]string{src.Name()}, src.DependencyNames()...)}
		}
	}
	return p, nil
}

func (m *Manager) finish(log *logger.Logger, span trace.Span, summary *PluginManagerSummary, start time.Time) *PluginManagerSummary {
	sort.Strings(summary.SuccessfulPlugins)
	sort.Strings(summary.FailedPlugins)
	summary.TotalRuntime = time.Since(start)

	span.SetAttributes(
		attribute.Int("plugins.successful", len(summary.SuccessfulPlugins)),
		attribute.Int("plugins.failed", len(summary.FailedPlugins)),
	)
	log.WithFields(map[string]any{
		"successful": summary.SuccessfulPlugins,
		"failed":     summary.FailedPlugins,
		"runtime":    summary.TotalRuntime.String(),
	}).Info("plugins applied")
	return summary
}

func (s *PluginManagerSummary) record(name string, entry PluginExecutionSummary) {
	s.PluginSummaries[name] = entry
	if entry.Success {
		s.SuccessfulPlugins = append(s.SuccessfulPlugins, name)
		return
	}
	s.FailedPlugins = append(s.FailedPlugins, name)
}

func convertComponent(c pipeline.ComponentSummary, execErr error) PluginExecutionSummary {
	switch c.State {
	case pipeline.StateSuccessful:
		result, ok := c.Result.Data().(*Result)
		if !ok {
			return failedSummary(fmt.Errorf("plugin produced %T, not a Result", c.Result.Data()))
		}
		outputs := make(map[string]string, len(result.SourceToOutput))
		for src, out := range result.SourceToOutput {
			outputs[src] = out
		}
		return PluginExecutionSummary{Runtime: c.Runtime, SourceToOutput: outputs, Success: true, Data: result.Data}
	case pipeline.StateFailed:
		return failedSummary(c.Err)
	default:
		return failedSummary(execErr)
	}
}

// closureBuilder walks plugin dependencies depth first and collects every
// plugin once, dependencies before dependents.
type closureBuilder struct {
	loader *Loader
	done   map[string]bool
	stack  []string
	order  []*PluginSource
}

func newClosureBuilder(loader *Loader) *closureBuilder {
	return &closureBuilder{loader: loader, done: make(map[string]bool)}
}

func (b *closureBuilder) visit(name, requiredBy string, constraint *VersionConstraint) error {
	src, ok := b.loader.Plugin(name)
	if !ok {
		if requiredBy == "" {
			return ErrPluginNotFound{Name: name}
		}
		return ErrMissingDependency{Plugin: requiredBy, Dependency: name}
	}
	if !constraint.Satisfies(src.Version()) {
		return ErrVersionConflict{
			Plugin:        name,
			RequiredBy:    requiredBy,
			Constraint:    constraint.String(),
			ActualVersion: src.Version(),
		}
	}
	if b.done[name] {
		return nil
	}
	if idx := slices.Index(b.stack, name); idx >= 0 {
		return ErrCircularDependency{Cycle: slices.Clone(b.stack[idx:])}
	}

	b.stack = append(b.stack, name)
	for _, dep := range src.Dependencies() {
		if err := b.visit(dep.Name, name, dep.Constraint); err != nil {
			return err
		}
	}
	b.stack = b.stack[:len(b.stack)-1]

	b.done[name] = true
	b.order = append(b.order, src)
	return nil
}
