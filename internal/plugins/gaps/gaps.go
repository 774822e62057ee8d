// Package gapsplugin annotates silences in a conversation.
package gapsplugin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gailbot/gailbot/internal/model"
	"github.com/gailbot/gailbot/internal/plugin"
	"github.com/gailbot/gailbot/internal/plugins/pluginutil"
	turnsplugin "github.com/gailbot/gailbot/internal/plugins/turns"
)

const (
	Name    = "gaps"
	Class   = "GapAnnotation"
	Version = "1.0.0"

	// DefaultThreshold is the shortest silence, in seconds, that is annotated.
	DefaultThreshold = 0.3

	thresholdOption = "threshold"
	outputSuffix    = ".gaps.yaml"
)

// Data maps each source to its annotated events.
type Data map[string][]model.Event

type gapsPlugin struct {
	succeeded bool
}

// New creates a gap annotation plugin.
func New() plugin.Plugin {
	return &gapsPlugin{}
}

// Apply reads the threshold from Options["threshold"] (seconds).
func (p *gapsPlugin) Apply(ctx context.Context, deps map[string]any, cfg plugin.ApplyConfig) (*plugin.Result, error) {
	p.succeeded = false

	threshold, err := cfg.FloatOption(thresholdOption, DefaultThreshold)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative, got %v", threshold)
	}

	turns, err := pluginutil.Dependency[turnsplugin.Data](deps, turnsplugin.Name)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(turns))
	for source := range turns {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	data := make(Data, len(sources))
	outputs := make(map[string]string, len(sources))
	paths := pluginutil.OutputPaths(cfg.OutputDir, sources, outputSuffix)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		events := Annotate(turns[source], threshold)
		out := paths[source]
		if err := pluginutil.WriteYAML(out, events); err != nil {
			return nil, err
		}
		data[source] = events
		outputs[source] = out
	}

	p.succeeded = true
	return &plugin.Result{SourceToOutput: outputs, Data: data}, nil
}

func (p *gapsPlugin) WasSuccessful() bool {
	return p.succeeded
}

// Annotate flattens turns into events. A silence of at least threshold
// seconds between two utterances of one turn becomes a pause and splits the
// turn; the same silence between turns becomes a gap.
func Annotate(turns []model.Turn, threshold float64) []model.Event {
	var events []model.Event
	for i, turn := range turns {
		if i > 0 {
			if silence := turn.Start - turns[i-1].End; silence > 0 && silence >= threshold {
				events = append(events, model.Event{Kind: model.EventGap, Start: turns[i-1].End, End: turn.Start})
			}
		}
		events = append(events, splitTurn(turn, threshold)...)
	}
	return events
}

func splitTurn(turn model.Turn, threshold float64) []model.Event {
	if len(turn.Parts) == 0 {
		return []model.Event{{Kind: model.EventTurn, Speaker: turn.Speaker, Text: turn.Text, Start: turn.Start, End: turn.End}}
	}

	var events []model.Event
	segment := model.Turn{Speaker: turn.Speaker, Start: turn.Parts[0].Start, End: turn.Parts[0].End}
	texts := []string{}
	flush := func() {
		events = append(events, model.Event{
			Kind:    model.EventTurn,
			Speaker: segment.Speaker,
			Text:    joinTexts(texts),
			Start:   segment.Start,
			End:     segment.End,
		})
	}

	for i, part := range turn.Parts {
		if i > 0 {
			if silence := part.Start - segment.End; silence > 0 && silence >= threshold {
				flush()
				events = append(events, model.Event{Kind: model.EventPause, Speaker: turn.Speaker, Start: segment.End, End: part.Start})
				segment = model.Turn{Speaker: turn.Speaker, Start: part.Start, End: part.End}
				texts = texts[:0]
			}
		}
		texts = append(texts, part.Text)
		segment.End = max(segment.End, part.End)
	}
	flush()
	return events
}

func joinTexts(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
