package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/gailbot/gailbot/internal/plugin"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

func supportsStyling(writer any) bool {
	if file, ok := writer.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

type summaryRow struct {
	name    string
	success bool
	runtime time.Duration
	outputs []string
	err     string
}

func summaryRows(summary *plugin.PluginManagerSummary) []summaryRow {
	names := make([]string, 0, len(summary.PluginSummaries))
	for name := range summary.PluginSummaries {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]summaryRow, 0, len(names))
	for _, name := range names {
		entry := summary.PluginSummaries[name]
		outputs := make([]string, 0, len(entry.SourceToOutput))
		for _, out := range entry.SourceToOutput {
			outputs = append(outputs, out)
		}
		sort.Strings(outputs)

		row := summaryRow{name: name, success: entry.Success, runtime: entry.Runtime, outputs: outputs}
		if entry.Err != nil {
			row.err = firstLine(entry.Err.Error())
		}
		rows = append(rows, row)
	}
	return rows
}

func renderSummary(w io.Writer, summary *plugin.PluginManagerSummary, styled bool) {
	title := fmt.Sprintf("Run %s finished in %s: %d succeeded, %d failed",
		summary.RunID,
		summary.TotalRuntime.Round(time.Millisecond),
		len(summary.SuccessfulPlugins),
		len(summary.FailedPlugins),
	)
	rows := summaryRows(summary)

	if !styled {
		fmt.Fprintln(w, title)
		writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "PLUGIN\tSTATUS\tRUNTIME\tOUTPUTS\tERROR")
		for _, row := range rows {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
				row.name,
				statusLabel(row.success),
				row.runtime.Round(time.Millisecond),
				valueOrFallback(strings.Join(row.outputs, ", "), "-"),
				valueOrFallback(row.err, "-"),
			)
		}
		writer.Flush() //nolint:errcheck
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("PLUGIN", "STATUS", "RUNTIME", "OUTPUTS", "ERROR").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if rows[row].success {
					return successStyle.Padding(0, 1)
				}
				return failureStyle.Padding(0, 1)
			}
			return style
		})
	for _, row := range rows {
		t.Row(
			row.name,
			statusLabel(row.success),
			row.runtime.Round(time.Millisecond).String(),
			valueOrFallback(strings.Join(row.outputs, "\n"), "-"),
			valueOrFallback(row.err, "-"),
		)
	}

	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, t.Render())
}

type summaryJSONPlugin struct {
	Name           string            `json:"name"`
	Success        bool              `json:"success"`
	RuntimeMS      int64             `json:"runtime_ms"`
	SourceToOutput map[string]string `json:"source_to_output"`
	Error          string            `json:"error,omitempty"`
}

type summaryJSONPayload struct {
	RunID             string              `json:"run_id"`
	TotalRuntimeMS    int64               `json:"total_runtime_ms"`
	SuccessfulPlugins []string            `json:"successful_plugins"`
	FailedPlugins     []string            `json:"failed_plugins"`
	Plugins           []summaryJSONPlugin `json:"plugins"`
}

func renderSummaryJSON(w io.Writer, summary *plugin.PluginManagerSummary) error {
	payload := summaryJSONPayload{
		RunID:             summary.RunID,
		TotalRuntimeMS:    summary.TotalRuntime.Milliseconds(),
		SuccessfulPlugins: summary.SuccessfulPlugins,
		FailedPlugins:     summary.FailedPlugins,
		Plugins:           []summaryJSONPlugin{},
	}
	for _, row := range summaryRows(summary) {
		entry := summary.PluginSummaries[row.name]
		p := summaryJSONPlugin{
			Name:           row.name,
			Success:        entry.Success,
			RuntimeMS:      entry.Runtime.Milliseconds(),
			SourceToOutput: entry.SourceToOutput,
		}
		if entry.Err != nil {
			p.Error = entry.Err.Error()
		}
		payload.Plugins = append(payload.Plugins, p)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func statusLabel(success bool) string {
	if success {
		return "ok"
	}
	return "failed"
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func valueOrFallback(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
