package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sessionJSON = `{"utterances": [
  {"speaker": "A", "text": "so", "start": 0.0, "end": 0.5},
  {"speaker": "A", "text": "anyway", "start": 1.0, "end": 1.6},
  {"speaker": "B", "text": "yes", "start": 2.8, "end": 3.1}
]}`

// writeSettings writes a quiet settings file so tests do not depend on the
// caller's environment defaults.
func writeSettings(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "workers: 2\nlog_level: error\nhuman_readable: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{"--config", writeSettings(t)}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
