package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var errApply = errors.New("apply failed")

// fakePlugin joins its dependency data into its own Data so tests can see
// what flowed between plugins.
type fakePlugin struct {
	name         string
	fail         bool
	unsuccessful bool
	panics       bool
	succeeded    bool
}

func (p *fakePlugin) Apply(_ context.Context, deps map[string]any, cfg ApplyConfig) (*Result, error) {
	if p.panics {
		panic("fake plugin exploded")
	}
	if p.fail {
		return nil, errApply
	}

	parts := make([]string, 0, len(deps))
	for name, data := range deps {
		parts = append(parts, fmt.Sprintf("%s=%v", name, data))
	}
	sort.Strings(parts)

	outputs := make(map[string]string, len(cfg.Sources))
	for _, src := range cfg.Sources {
		outputs[src] = filepath.Join(cfg.OutputDir, p.name+"-"+filepath.Base(src))
	}

	p.succeeded = !p.unsuccessful
	return &Result{
		SourceToOutput: outputs,
		Data:           p.name + "(" + strings.Join(parts, ",") + ")",
	}, nil
}

func (p *fakePlugin) WasSuccessful() bool {
	return p.succeeded
}

// fakeFactory returns a factory building fresh copies of proto and counting
// how many instances were made.
func fakeFactory(proto fakePlugin, made *atomic.Int32) Factory {
	return func() Plugin {
		if made != nil {
			made.Add(1)
		}
		p := proto
		return &p
	}
}

// writeSource creates an empty file that stands in for a plugin source.
func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("source"), 0o644))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeDef struct {
	name    string
	deps    []string
	version string
	plugin  fakePlugin
}

// newFakeLoader loads one fake plugin per def, each backed by its own
// class and source file.
func newFakeLoader(t *testing.T, defs ...fakeDef) (*Loader, map[string]*atomic.Int32) {
	t.Helper()

	dir := t.TempDir()
	resolver := NewFactoryResolver()
	loader := NewLoader(resolver, nil)
	made := make(map[string]*atomic.Int32, len(defs))

	for _, def := range defs {
		counter := &atomic.Int32{}
		made[def.name] = counter

		proto := def.plugin
		proto.name = def.name
		class := "Fake" + def.name
		require.NoError(t, resolver.Register(class, fakeFactory(proto, counter)))

		require.NoError(t, loader.LoadPlugin(PluginConfig{
			Name:         def.name,
			Dependencies: def.deps,
			SourcePath:   writeSource(t, dir, def.name+".so"),
			ClassName:    class,
			Version:      def.version,
		}))
	}
	return loader, made
}

func applyConfigs(t *testing.T, names ...string) map[string]ApplyConfig {
	t.Helper()
	out := t.TempDir()
	configs := make(map[string]ApplyConfig, len(names))
	for _, name := range names {
		configs[name] = ApplyConfig{Sources: []string{"/data/session.json"}, OutputDir: out}
	}
	return configs
}
