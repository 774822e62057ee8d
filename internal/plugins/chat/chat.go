// Package chatplugin writes annotated conversations as CHAT transcripts.
package chatplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/gailbot/gailbot/internal/model"
	"github.com/gailbot/gailbot/internal/plugin"
	gapsplugin "github.com/gailbot/gailbot/internal/plugins/gaps"
	"github.com/gailbot/gailbot/internal/plugins/pluginutil"
	"github.com/gailbot/gailbot/pkg/diff"
)

const (
	Name    = "chat"
	Class   = "ChatWriter"
	Version = "1.0.0"

	languageOption  = "language"
	defaultLanguage = "eng"
	outputSuffix    = ".cha"
)

// Data reports what the chat plugin wrote. Changes holds, per source, the
// line diff against a previous file at the same path that had different
// content.
type Data struct {
	Files   map[string]string
	Changes map[string]string
}

type chatPlugin struct {
	succeeded bool
}

// New creates a CHAT writer plugin.
func New() plugin.Plugin {
	return &chatPlugin{}
}

// Apply writes <OutputDir>/<source base>.cha for every annotated source.
// Options["language"] sets the @Languages header.
func (p *chatPlugin) Apply(ctx context.Context, deps map[string]any, cfg plugin.ApplyConfig) (*plugin.Result, error) {
	p.succeeded = false

	events, err := pluginutil.Dependency[gapsplugin.Data](deps, gapsplugin.Name)
	if err != nil {
		return nil, err
	}

	language := defaultLanguage
	if raw, ok := cfg.Options[languageOption].(string); ok && raw != "" {
		language = raw
	}

	sources := make([]string, 0, len(events))
	for source := range events {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	data := Data{Files: make(map[string]string, len(sources)), Changes: map[string]string{}}
	paths := pluginutil.OutputPaths(cfg.OutputDir, sources, outputSuffix)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := paths[source]
		content := []byte(Render(events[source], language))

		previous, err := os.ReadFile(out)
		switch {
		case err == nil:
			if change := diff.Lines(previous, content, out+" (previous)", out); change != "" {
				data.Changes[source] = change
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read previous output: %w", err)
		}

		if err := pluginutil.WriteFile(out, content); err != nil {
			return nil, err
		}
		data.Files[source] = out
	}

	p.succeeded = true
	return &plugin.Result{SourceToOutput: data.Files, Data: data}, nil
}

func (p *chatPlugin) WasSuccessful() bool {
	return p.succeeded
}

// Render formats events as a CHAT document. Pauses stay on the speaker's
// line; gaps between speakers get a line of their own.
func Render(events []model.Event, language string) string {
	var b strings.Builder
	b.WriteString("@UTF8\n@Begin\n")
	fmt.Fprintf(&b, "@Languages:\t%s\n", language)

	var speakers []string
	seen := map[string]bool{}
	for _, e := range events {
		if e.Kind == model.EventTurn && !seen[e.Speaker] {
			seen[e.Speaker] = true
			speakers = append(speakers, e.Speaker)
		}
	}
	participants := make([]string, 0, len(speakers))
	for _, s := range speakers {
		participants = append(participants, fmt.Sprintf("%s %s Participant", speakerCode(s), s))
	}
	fmt.Fprintf(&b, "@Participants:\t%s\n", strings.Join(participants, ", "))

	var line []string
	current := ""
	flush := func() {
		if len(line) == 0 {
			return
		}
		fmt.Fprintf(&b, "*%s:\t%s\n", speakerCode(current), strings.Join(line, " "))
		line = nil
	}

	for _, e := range events {
		switch e.Kind {
		case model.EventTurn:
			if e.Speaker != current {
				flush()
				current = e.Speaker
			}
			if e.Text != "" {
				line = append(line, e.Text)
			}
		case model.EventPause:
			line = append(line, silence(e))
		case model.EventGap:
			flush()
			b.WriteString(silence(e))
			b.WriteString("\n")
		}
	}
	flush()

	b.WriteString("@End\n")
	return b.String()
}

func silence(e model.Event) string {
	return fmt.Sprintf("(%.1f)", e.Duration())
}

func speakerCode(speaker string) string {
	code := strings.ToUpper(strings.Join(strings.Fields(speaker), "_"))
	if code == "" {
		return "UNK"
	}
	return code
}
