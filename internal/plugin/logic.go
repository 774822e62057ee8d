package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/gailbot/gailbot/internal/pipeline"
)

// ErrUnsuccessfulPlugin is recorded when Apply returned without error but the
// plugin reported that it did not succeed.
var ErrUnsuccessfulPlugin = errors.New("plugin reported an unsuccessful run")

// applyInput is what the pre-processor hands to the processor.
type applyInput struct {
	deps map[string]any
	cfg  ApplyConfig
}

type applyOutput struct {
	plugin Plugin
	result *Result
}

// PluginLogic is the pipeline Logic of one ApplyPlugins run. Every bound
// plugin reads its ApplyConfig from the base input, which must be a
// map[string]ApplyConfig, and receives the Result.Data of its dependencies.
type PluginLogic struct {
	pipeline.Registry
}

// NewPluginLogic returns a PluginLogic with nothing bound.
func NewPluginLogic() *PluginLogic {
	return &PluginLogic{}
}

// Bind registers the processing chain for src.
func (l *PluginLogic) Bind(src *PluginSource) error {
	name := src.Name()
	deps := src.DependencyNames()

	pre := func(inputs map[string]*pipeline.Stream) (any, error) {
		configs, ok := inputs[pipeline.BaseKey].Data().(map[string]ApplyConfig)
		if !ok {
			return nil, fmt.Errorf("base input is %T, want map[string]ApplyConfig", inputs[pipeline.BaseKey].Data())
		}
		cfg, ok := configs[name]
		if !ok {
			return nil, fmt.Errorf("no apply configuration for plugin '%s'", name)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		depData := make(map[string]any, len(deps))
		for _, dep := range deps {
			result, ok := inputs[dep].Data().(*Result)
			if !ok {
				return nil, ErrMissingDependency{Plugin: name, Dependency: dep}
			}
			depData[dep] = result.Data
		}
		return applyInput{deps: depData, cfg: cfg}, nil
	}

	proc := func(ctx context.Context, object any, input any) (any, error) {
		p, ok := object.(Plugin)
		if !ok || p == nil {
			return nil, fmt.Errorf("component object is %T, not a Plugin", object)
		}
		in, ok := input.(applyInput)
		if !ok {
			return nil, fmt.Errorf("plugin '%s' received %T, not its apply input", name, input)
		}
		result, err := p.Apply(ctx, in.deps, in.cfg)
		if err != nil {
			return nil, err
		}
		return applyOutput{plugin: p, result: result}, nil
	}

	post := func(output any) (*pipeline.Stream, error) {
		out, ok := output.(applyOutput)
		if !ok {
			return nil, fmt.Errorf("plugin '%s' produced %T, not an apply output", name, output)
		}
		if !out.plugin.WasSuccessful() {
			return nil, ErrUnsuccessfulPlugin
		}
		result := out.result
		if result == nil {
			result = &Result{}
		}
		return pipeline.NewStream(result), nil
	}

	return l.AddComponentLogic(name, pre, proc, post)
}
