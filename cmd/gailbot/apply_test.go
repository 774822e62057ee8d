package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyCommandWritesChatFile(t *testing.T) {
	t.Parallel()

	source := writeTestFile(t, t.TempDir(), "session.json", sessionJSON)
	out := t.TempDir()

	stdout, _, err := runCLI(t, "apply", "--plugin", "chat", "--source", source, "--output", out)
	require.NoError(t, err)

	require.Contains(t, stdout, "4 succeeded, 0 failed")
	require.Contains(t, stdout, "PLUGIN")
	for _, name := range []string{"transcript", "turns", "gaps", "chat"} {
		require.Contains(t, stdout, name)
	}

	content, err := os.ReadFile(filepath.Join(out, "session.cha"))
	require.NoError(t, err)
	require.Contains(t, string(content), "*A:\tso (0.5) anyway\n(1.2)\n*B:\tyes\n")
	require.FileExists(t, filepath.Join(out, "session.turns.yaml"))
}

func TestApplyCommandReportsChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := writeTestFile(t, dir, "session.json", sessionJSON)
	out := t.TempDir()

	_, _, err := runCLI(t, "apply", "-p", "chat", "-s", source, "-o", out, "--show-changes")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "apply", "-p", "chat", "-s", source, "-o", out, "--show-changes")
	require.NoError(t, err)
	require.Contains(t, stdout, "No CHAT files changed.")

	writeTestFile(t, dir, "session.json", `{"utterances": [
  {"speaker": "A", "text": "so", "start": 0.0, "end": 0.5},
  {"speaker": "B", "text": "right", "start": 0.6, "end": 1.0}
]}`)

	stdout, _, err = runCLI(t, "apply", "-p", "chat", "-s", source, "-o", out, "--show-changes")
	require.NoError(t, err)
	require.Contains(t, stdout, "+*B:\tright")
	require.Contains(t, stdout, "-*A:\tso (0.5) anyway")
}

func TestApplyCommandJSONOutput(t *testing.T) {
	t.Parallel()

	source := writeTestFile(t, t.TempDir(), "session.json", sessionJSON)
	out := t.TempDir()

	stdout, _, err := runCLI(t, "apply", "-p", "turns", "-s", source, "-o", out, "--json")
	require.NoError(t, err)

	var payload summaryJSONPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	require.NotEmpty(t, payload.RunID)
	require.Equal(t, []string{"transcript", "turns"}, payload.SuccessfulPlugins)
	require.Empty(t, payload.FailedPlugins)
	require.Len(t, payload.Plugins, 2)
	require.Equal(t, filepath.Join(out, "session.turns.yaml"), payload.Plugins[1].SourceToOutput[source])
}

func TestApplyCommandFailsWhenPluginsFail(t *testing.T) {
	t.Parallel()

	source := writeTestFile(t, t.TempDir(), "broken.json", `{"utterances": [{"speaker": "", "start": 1, "end": 0}]}`)

	stdout, _, err := runCLI(t, "apply", "-p", "gaps", "-s", source, "-o", t.TempDir())
	require.Error(t, err)
	require.ErrorContains(t, err, "3 of 3 plugin(s) failed: gaps, transcript, turns")
	require.Contains(t, stdout, "0 succeeded, 3 failed")

	var cmdErr *commandError
	require.ErrorAs(t, err, &cmdErr)
}

func TestApplyCommandUnknownPlugin(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "apply", "-p", "sentiment", "-s", "x.json", "-o", t.TempDir())
	require.ErrorContains(t, err, "sentiment")
}

func TestApplyCommandUsesPluginDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "bin/speaker_turns", "binary")
	writeTestFile(t, dir, "speaker_turns.yaml", `plugin_name: speaker_turns
plugin_dependencies: ["transcript@1.x"]
plugin_source: bin/speaker_turns
plugin_class: TurnConstruction
version: 2.0.0
`)
	source := writeTestFile(t, t.TempDir(), "session.json", sessionJSON)

	stdout, _, err := runCLI(t, "apply", "--plugins-dir", dir, "-p", "speaker_turns", "-s", source, "-o", t.TempDir())
	require.NoError(t, err)
	require.Contains(t, stdout, "speaker_turns")
	require.Contains(t, stdout, "2 succeeded, 0 failed")
}

func TestValidateApplyOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    applyOptions
		wantErr string
	}{
		{name: "valid", opts: applyOptions{Plugins: []string{"chat"}, Sources: []string{"a.json"}, OutputDir: "out"}},
		{name: "no plugins", opts: applyOptions{Sources: []string{"a.json"}, OutputDir: "out"}, wantErr: "--plugin"},
		{name: "no sources", opts: applyOptions{Plugins: []string{"chat"}, OutputDir: "out"}, wantErr: "--source"},
		{name: "blank output", opts: applyOptions{Plugins: []string{"chat"}, Sources: []string{"a.json"}, OutputDir: "  "}, wantErr: "--output"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validateApplyOptions(tc.opts)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
