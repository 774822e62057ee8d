package plugin

import (
	"time"
)

// PluginExecutionSummary reports one plugin of one ApplyPlugins run.
type PluginExecutionSummary struct {
	Runtime        time.Duration
	SourceToOutput map[string]string
	Success        bool
	Err            error
	// Data is the plugin's Result.Data when it succeeded.
	Data any
}

// PluginManagerSummary is the outcome of one ApplyPlugins run. Every
// requested plugin appears exactly once, either in SuccessfulPlugins or in
// FailedPlugins, and always in PluginSummaries.
type PluginManagerSummary struct {
	RunID             string
	TotalRuntime      time.Duration
	SuccessfulPlugins []string
	FailedPlugins     []string
	PluginSummaries   map[string]PluginExecutionSummary
}

// HasFailures reports whether any requested plugin failed.
func (s *PluginManagerSummary) HasFailures() bool {
	return s != nil && len(s.FailedPlugins) > 0
}

func failedSummary(err error) PluginExecutionSummary {
	return PluginExecutionSummary{SourceToOutput: map[string]string{}, Err: err}
}
