package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gailbot/gailbot/internal/plugin"
)

type pluginsOptions struct {
	pluginDirs []string
	jsonOutput bool
}

func newPluginsCmd(root *rootFlags) *cobra.Command {
	opts := &pluginsOptions{}

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect registered plugins",
	}
	cmd.PersistentFlags().StringArrayVar(&opts.pluginDirs, "plugins-dir", nil, "Directory of plugin configuration files (repeatable)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List builtin and configured plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.loadApp(cmd.ErrOrStderr(), opts.pluginDirs...)
			if err != nil {
				return err
			}
			return runPluginsList(cmd, a, opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <plugin-name>",
		Short: "Show a plugin's configuration and dependency chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.loadApp(cmd.ErrOrStderr(), opts.pluginDirs...)
			if err != nil {
				return err
			}
			return runPluginsShow(cmd, a, args[0], opts)
		},
	})

	return cmd
}

type pluginJSON struct {
	Name         string    `json:"name"`
	Version      string    `json:"version,omitempty"`
	Class        string    `json:"class"`
	Source       string    `json:"source"`
	Author       string    `json:"author,omitempty"`
	Description  string    `json:"description,omitempty"`
	Dependencies []string  `json:"dependencies"`
	LoadedAt     time.Time `json:"loaded_at"`
}

func toPluginJSON(src *plugin.PluginSource) pluginJSON {
	deps := []string{}
	for _, dep := range src.Dependencies() {
		deps = append(deps, dep.String())
	}
	return pluginJSON{
		Name:         src.Name(),
		Version:      src.Version(),
		Class:        src.ClassName(),
		Source:       src.SourcePath(),
		Author:       src.Author(),
		Description:  src.Description(),
		Dependencies: deps,
		LoadedAt:     src.LoadedAt(),
	}
}

func runPluginsList(cmd *cobra.Command, a *app, opts *pluginsOptions) error {
	plugins := a.manager.Plugins()

	if opts.jsonOutput {
		payload := make([]pluginJSON, 0, len(plugins))
		for _, src := range plugins {
			payload = append(payload, toPluginJSON(src))
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tVERSION\tCLASS\tDEPENDENCIES")
	for _, src := range plugins {
		p := toPluginJSON(src)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			p.Name,
			valueOrFallback(p.Version, "-"),
			p.Class,
			valueOrFallback(strings.Join(p.Dependencies, ", "), "-"),
		)
	}
	return writer.Flush()
}

func runPluginsShow(cmd *cobra.Command, a *app, name string, opts *pluginsOptions) error {
	var src *plugin.PluginSource
	for _, candidate := range a.manager.Plugins() {
		if candidate.Name() == name {
			src = candidate
			break
		}
	}
	if src == nil {
		return newCommandError("show plugin", name, plugin.ErrPluginNotFound{Name: name}, "Run 'gailbot plugins list' to view registered plugins.")
	}

	closure, err := a.manager.DependencyClosure(name)
	if err != nil {
		return newCommandError("show plugin", name, err, "Register the missing dependencies or fix the dependency declarations.")
	}

	p := toPluginJSON(src)
	if opts.jsonOutput {
		payload := struct {
			pluginJSON
			RunOrder []string `json:"run_order"`
		}{pluginJSON: p, RunOrder: closure}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Plugin:       %s\n", p.Name)
	fmt.Fprintf(out, "Version:      %s\n", valueOrFallback(p.Version, "(unversioned)"))
	fmt.Fprintf(out, "Class:        %s\n", p.Class)
	fmt.Fprintf(out, "Source:       %s\n", p.Source)
	fmt.Fprintf(out, "Author:       %s\n", valueOrFallback(p.Author, "(unknown)"))
	fmt.Fprintf(out, "Description:  %s\n", valueOrFallback(p.Description, "(none)"))
	fmt.Fprintf(out, "Dependencies: %s\n", valueOrFallback(strings.Join(p.Dependencies, ", "), "(none)"))
	fmt.Fprintf(out, "Run order:    %s\n", strings.Join(closure, " -> "))
	return nil
}
