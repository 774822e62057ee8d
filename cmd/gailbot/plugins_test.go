package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPluginsListShowsBuiltins(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "plugins", "list")
	require.NoError(t, err)

	require.Contains(t, stdout, "NAME")
	for _, want := range []string{"transcript", "TurnConstruction", "GapAnnotation", "ChatWriter", "gaps@1.x"} {
		require.Contains(t, stdout, want)
	}
}

func TestPluginsListJSONIncludesDirectoryPlugins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "bin/speaker_turns", "binary")
	writeTestFile(t, dir, "nested/speaker_turns.yml", `plugin_name: speaker_turns
plugin_dependencies: ["transcript"]
plugin_source: ../bin/speaker_turns
plugin_class: TurnConstruction
`)

	stdout, _, err := runCLI(t, "plugins", "--plugins-dir", dir, "list", "--json")
	require.NoError(t, err)

	var payload []pluginJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))

	names := make([]string, 0, len(payload))
	for _, p := range payload {
		names = append(names, p.Name)
	}
	require.ElementsMatch(t, []string{"chat", "gaps", "speaker_turns", "transcript", "turns"}, names)
}

func TestPluginsShow(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "plugins", "show", "chat")
	require.NoError(t, err)
	require.Contains(t, stdout, "Plugin:       chat")
	require.Contains(t, stdout, "Dependencies: gaps@1.x")
	require.Contains(t, stdout, "Run order:    transcript -> turns -> gaps -> chat")
}

func TestPluginsShowUnknownPlugin(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "plugins", "show", "sentiment")

	var cmdErr *commandError
	require.ErrorAs(t, err, &cmdErr)
	require.ErrorContains(t, err, "plugins list")
}
