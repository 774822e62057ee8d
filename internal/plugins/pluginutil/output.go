// Package pluginutil holds the file handling shared by the builtin plugins.
package pluginutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// OutputPaths assigns every source its own output file. A source with a
// unique base name gets <outputDir>/<base name without extension><suffix>.
// Sources sharing a base name also get a short id derived from their
// absolute path, so names do not depend on source order.
func OutputPaths(outputDir string, sources []string, suffix string) map[string]string {
	owners := make(map[string]map[string]bool, len(sources))
	for _, source := range sources {
		key := strings.ToLower(stem(source))
		if owners[key] == nil {
			owners[key] = make(map[string]bool)
		}
		owners[key][absPath(source)] = true
	}

	paths := make(map[string]string, len(sources))
	for _, source := range sources {
		name := stem(source)
		if len(owners[strings.ToLower(name)]) > 1 {
			id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(absPath(source))).String()
			name += "-" + id[:8]
		}
		paths[source] = filepath.Join(outputDir, name+suffix)
	}
	return paths
}

func stem(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func absPath(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		return filepath.Clean(source)
	}
	return abs
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteYAML encodes v as YAML into path.
func WriteYAML(path string, v any) error {
	content, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, content)
}

// Dependency returns deps[name] as T or an error naming what was found.
func Dependency[T any](deps map[string]any, name string) (T, error) {
	var zero T
	raw, ok := deps[name]
	if !ok {
		return zero, fmt.Errorf("dependency '%s' produced no data", name)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dependency '%s' produced %T, want %T", name, raw, zero)
	}
	return v, nil
}
