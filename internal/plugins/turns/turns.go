// Package turnsplugin groups utterances into speaker turns.
package turnsplugin

import (
	"context"
	"sort"
	"strings"

	"github.com/gailbot/gailbot/internal/model"
	"github.com/gailbot/gailbot/internal/plugin"
	"github.com/gailbot/gailbot/internal/plugins/pluginutil"
	transcriptplugin "github.com/gailbot/gailbot/internal/plugins/transcript"
)

const (
	Name    = "turns"
	Class   = "TurnConstruction"
	Version = "1.0.0"

	outputSuffix = ".turns.yaml"
)

// Data maps each source to its turns.
type Data map[string][]model.Turn

type turnsPlugin struct {
	succeeded bool
}

// New creates a turn construction plugin.
func New() plugin.Plugin {
	return &turnsPlugin{}
}

func (p *turnsPlugin) Apply(ctx context.Context, deps map[string]any, cfg plugin.ApplyConfig) (*plugin.Result, error) {
	p.succeeded = false

	transcripts, err := pluginutil.Dependency[transcriptplugin.Data](deps, transcriptplugin.Name)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(transcripts))
	for source := range transcripts {
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

		turns := Merge(transcripts[source].Utterances)
		out := paths[source]
		if err := pluginutil.WriteYAML(out, turns); err != nil {
			return nil, err
		}
		data[source] = turns
		outputs[source] = out
	}

	p.succeeded = true
	return &plugin.Result{SourceToOutput: outputs, Data: data}, nil
}

func (p *turnsPlugin) WasSuccessful() bool {
	return p.succeeded
}

// Merge joins consecutive utterances of the same speaker into one turn.
func Merge(utterances []model.Utterance) []model.Turn {
	var turns []model.Turn
	for _, u := range utterances {
		if n := len(turns); n > 0 && turns[n-1].Speaker == u.Speaker {
			last := &turns[n-1]
			last.Parts = append(last.Parts, u)
			last.End = max(last.End, u.End)
			continue
		}
		turns = append(turns, model.Turn{Speaker: u.Speaker, Start: u.Start, End: u.End, Parts: []model.Utterance{u}})
	}

	for i := range turns {
		texts := make([]string, 0, len(turns[i].Parts))
		for _, part := range turns[i].Parts {
			if text := strings.TrimSpace(part.Text); text != "" {
				texts = append(texts, text)
			}
		}
		turns[i].Text = strings.Join(texts, " ")
	}
	return turns
}
