package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gailbot/gailbot/internal/plugin"
	chatplugin "github.com/gailbot/gailbot/internal/plugins/chat"
)

type applyOptions struct {
	PluginDirs  []string
	Plugins     []string
	Sources     []string
	OutputDir   string
	Options     map[string]string
	ShowChanges bool
	JSON        bool
}

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply plugins and their dependencies to transcript sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateApplyOptions(opts); err != nil {
				return err
			}
			a, err := root.loadApp(cmd.ErrOrStderr(), opts.PluginDirs...)
			if err != nil {
				return err
			}
			return runApply(cmd, a, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.PluginDirs, "plugins-dir", nil, "Directory of plugin configuration files (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Plugins, "plugin", "p", nil, "Plugin to apply (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Sources, "source", "s", nil, "Transcript source file (repeatable)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Directory receiving plugin outputs")
	cmd.Flags().StringToStringVar(&opts.Options, "option", nil, "Plugin option as key=value, passed to every plugin")
	cmd.Flags().BoolVar(&opts.ShowChanges, "show-changes", false, "Print how regenerated CHAT files differ from the previous ones")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the summary as JSON")

	return cmd
}

func runApply(cmd *cobra.Command, a *app, opts applyOptions) error {
	closure, err := a.manager.DependencyClosure(opts.Plugins...)
	if err != nil {
		return newCommandError("apply", "resolving plugin dependencies", err, "Run 'gailbot plugins list' to see the registered plugins.")
	}

	options := make(map[string]any, len(opts.Options))
	for key, value := range opts.Options {
		options[key] = value
	}

	configs := make(map[string]plugin.ApplyConfig, len(closure))
	for _, name := range closure {
		configs[name] = plugin.ApplyConfig{
			Sources:   append([]string(nil), opts.Sources...),
			OutputDir: opts.OutputDir,
			Options:   options,
		}
	}

	summary := a.manager.ApplyPlugins(cmd.Context(), configs)

	if opts.JSON {
		if err := renderSummaryJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		renderSummary(cmd.OutOrStdout(), summary, supportsStyling(cmd.OutOrStdout()))
	}

	if opts.ShowChanges {
		printChanges(cmd, summary)
	}

	if summary.HasFailures() {
		return newCommandError("apply", fmt.Sprintf("run %s", summary.RunID),
			fmt.Errorf("%d of %d plugin(s) failed: %s", len(summary.FailedPlugins), len(closure), strings.Join(summary.FailedPlugins, ", ")),
			"Re-run with --verbose to see why each plugin failed.")
	}
	return nil
}

func printChanges(cmd *cobra.Command, summary *plugin.PluginManagerSummary) {
	entry, ok := summary.PluginSummaries[chatplugin.Name]
	if !ok || !entry.Success {
		return
	}
	data, ok := entry.Data.(chatplugin.Data)
	if !ok {
		return
	}

	out := cmd.OutOrStdout()
	if len(data.Changes) == 0 {
		fmt.Fprintln(out, "No CHAT files changed.")
		return
	}
	sources := make([]string, 0, len(data.Changes))
	for source := range data.Changes {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintln(out, data.Changes[source])
	}
}

func validateApplyOptions(opts applyOptions) error {
	switch {
	case len(opts.Plugins) == 0:
		return fmt.Errorf("at least one --plugin is required")
	case len(opts.Sources) == 0:
		return fmt.Errorf("at least one --source is required")
	case strings.TrimSpace(opts.OutputDir) == "":
		return fmt.Errorf("--output is required")
	}
	return nil
}
