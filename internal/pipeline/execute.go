package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dominikbraun/graph"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	pipelineerrors "github.com/gailbot/gailbot/pkg/errors"
)

// ComponentSummary is the per-component entry of ExecutionSummary.
type ComponentSummary struct {
	Result  *Stream
	Runtime time.Duration
	State   State
	Err     error
}

// task is the immutable snapshot a worker receives. Workers never see the
// graph or the Component itself.
type task struct {
	name   string
	object any
	inputs map[string]*Stream
	pre    PreProcessor
	proc   Processor
	post   PostProcessor
}

type taskResult struct {
	name    string
	result  *Stream
	runtime time.Duration
	err     error
}

// Execute runs every component whose dependencies succeed, one layer at a
// time. Component failures are recorded on the component and never returned;
// the returned error is limited to a missing Logic, a cancelled context
// (checked between layers) or an internal graph failure.
//
// Components left unexecuted because an upstream component failed are logged
// and reported by UnexecutedComponents.
func (p *Pipeline) Execute(ctx context.Context) error {
	for _, c := range p.components {
		c.reset()
	}
	if p.logic == nil {
		return ErrUndefinedLogic
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.execute", trace.WithAttributes(
		attribute.String("pipeline.name", p.name),
		attribute.Int("pipeline.components", len(p.components)),
		attribute.Int("pipeline.workers", p.workers),
	))
	defer span.End()

	remaining, err := p.deps.Clone()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot dependency graph")
		return fmt.Errorf("snapshot dependency graph: %w", err)
	}

	for layer := 0; ; layer++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return err
		}

		tasks, err := p.nextLayer(remaining)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "schedule layer")
			return err
		}
		if len(tasks) == 0 {
			break
		}

		p.log.WithFields(map[string]any{
			"pipeline":   p.name,
			"layer":      layer,
			"components": taskNames(tasks),
		}).Debug("executing layer")

		for _, res := range p.runLayer(ctx, tasks) {
			c := p.components[res.name]
			if res.err != nil {
				c.fail(res.err)
				p.log.WithFields(map[string]any{"pipeline": p.name, "component": res.name}).Error(res.err, "component failed")
				continue
			}
			c.succeed(res.result, res.runtime)
		}

		if err := p.pruneSucceeded(remaining); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "prune layer")
			return err
		}
	}

	if unexecuted := p.UnexecutedComponents(); len(unexecuted) > 0 {
		p.log.WithFields(map[string]any{
			"pipeline":   p.name,
			"unexecuted": unexecuted,
		}).Warn(fmt.Sprintf("%d component(s) never executed because a dependency did not succeed", len(unexecuted)))
	}

	span.SetAttributes(
		attribute.Int("pipeline.successful", len(p.SuccessfulComponents())),
		attribute.Int("pipeline.failed", len(p.FailedComponents())),
	)
	return nil
}

// nextLayer snapshots the ready components with no remaining dependencies.
func (p *Pipeline) nextLayer(remaining graph.Graph[string, string]) ([]task, error) {
	adjacency, err := remaining.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("read remaining graph: %w", err)
	}
	declared, err := p.deps.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("read dependency graph: %w", err)
	}

	var tasks []task
	for _, name := range sortedKeys(adjacency) {
		if len(adjacency[name]) > 0 {
			continue
		}
		c := p.components[name]
		if c.State() != StateReady {
			continue
		}

		inputs := make(map[string]*Stream, len(declared[name])+1)
		inputs[BaseKey] = p.base
		for dep := range declared[name] {
			inputs[dep] = p.components[dep].Result()
		}

		t, err := p.bind(name, c.InstantiatedObject(), inputs)
		if err != nil {
			// The Logic changed underneath a registered component. Record it
			// as a component failure so the run keeps going.
			c.fail(err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (p *Pipeline) bind(name string, object any, inputs map[string]*Stream) (task, error) {
	pre, err := p.logic.PreProcessor(name)
	if err != nil {
		return task{}, err
	}
	proc, err := p.logic.Processor(name)
	if err != nil {
		return task{}, err
	}
	post, err := p.logic.PostProcessor(name)
	if err != nil {
		return task{}, err
	}
	return task{name: name, object: object, inputs: inputs, pre: pre, proc: proc, post: post}, nil
}

// runLayer runs tasks on a pool bounded by the worker count and waits for all
// of them before returning.
func (p *Pipeline) runLayer(ctx context.Context, tasks []task) []taskResult {
	results := make([]taskResult, len(tasks))

	var group errgroup.Group
	group.SetLimit(p.workers)
	for i, t := range tasks {
		group.Go(func() error {
			results[i] = p.runTask(ctx, t)
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (p *Pipeline) runTask(ctx context.Context, t task) (res taskResult) {
	res.name = t.name

	ctx, span := p.tracer.Start(ctx, "pipeline.component", trace.WithAttributes(
		attribute.String("component.name", t.name),
	))
	defer func() {
		if r := recover(); r != nil {
			res.result = nil
			res.runtime = 0
			res.err = pipelineerrors.NewExecutionError(t.name, "panic", fmt.Errorf("%v\n%s", r, debug.Stack()))
		}
		state := StateSuccessful
		if res.err != nil {
			state = StateFailed
			span.RecordError(res.err)
			span.SetStatus(codes.Error, "component failed")
		}
		span.SetAttributes(attribute.String("component.state", string(state)))
		span.End()
	}()

	start := time.Now()

	input, err := t.pre(t.inputs)
	if err != nil {
		res.err = pipelineerrors.NewExecutionError(t.name, "pre-process", err)
		return res
	}
	output, err := t.proc(ctx, t.object, input)
	if err != nil {
		res.err = pipelineerrors.NewExecutionError(t.name, "process", err)
		return res
	}
	stream, err := t.post(output)
	if err != nil {
		res.err = pipelineerrors.NewExecutionError(t.name, "post-process", err)
		return res
	}

	res.result = stream
	res.runtime = time.Since(start)
	return res
}

// pruneSucceeded removes every successful component that has no remaining
// dependencies, exposing the components that were waiting on it.
func (p *Pipeline) pruneSucceeded(remaining graph.Graph[string, string]) error {
	adjacency, err := remaining.AdjacencyMap()
	if err != nil {
		return fmt.Errorf("read remaining graph: %w", err)
	}
	predecessors, err := remaining.PredecessorMap()
	if err != nil {
		return fmt.Errorf("read remaining graph: %w", err)
	}

	for _, name := range sortedKeys(adjacency) {
		if len(adjacency[name]) > 0 || p.components[name].State() != StateSuccessful {
			continue
		}
		for dependent := range predecessors[name] {
			if err := remaining.RemoveEdge(dependent, name); err != nil {
				return fmt.Errorf("release %q from %q: %w", dependent, name, err)
			}
		}
		if err := remaining.RemoveVertex(name); err != nil {
			return fmt.Errorf("remove completed component %q: %w", name, err)
		}
	}
	return nil
}

// ExecutionSummary reports the result, runtime, state and error of every
// component after Execute.
func (p *Pipeline) ExecutionSummary() map[string]ComponentSummary {
	summary := make(map[string]ComponentSummary, len(p.components))
	for name, c := range p.components {
		summary[name] = ComponentSummary{
			Result:  c.Result(),
			Runtime: c.Runtime(),
			State:   c.State(),
			Err:     c.Err(),
		}
	}
	return summary
}

// SuccessfulComponents lists components that succeeded, sorted.
func (p *Pipeline) SuccessfulComponents() []string {
	return p.componentsIn(StateSuccessful)
}

// FailedComponents lists components that failed, sorted.
func (p *Pipeline) FailedComponents() []string {
	return p.componentsIn(StateFailed)
}

// UnexecutedComponents lists components still ready, sorted.
func (p *Pipeline) UnexecutedComponents() []string {
	return p.componentsIn(StateReady)
}

func (p *Pipeline) componentsIn(state State) []string {
	names := []string{}
	for _, name := range sortedKeys(p.components) {
		if p.components[name].State() == state {
			names = append(names, name)
		}
	}
	return names
}

func taskNames(tasks []task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.name
	}
	return names
}
