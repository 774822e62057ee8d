// Package transcriptplugin parses transcription files into utterances.
package transcriptplugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/gailbot/gailbot/internal/config"
	"github.com/gailbot/gailbot/internal/model"
	"github.com/gailbot/gailbot/internal/plugin"
	"github.com/gailbot/gailbot/internal/plugins/pluginutil"
	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

const (
	// Name is the plugin name dependents refer to.
	Name = "transcript"
	// Class is the class name the plugin is registered under.
	Class = "Transcript"
	// Version of the plugin.
	Version = "1.0.0"

	outputSuffix = ".utterances.yaml"
)

// Data is what the plugin hands to its dependents: one transcript per source.
type Data map[string]*model.Transcript

type transcriptPlugin struct {
	succeeded bool
}

// New creates a transcript plugin.
func New() plugin.Plugin {
	return &transcriptPlugin{}
}

// Apply reads every source, a YAML or JSON document of the form
// {"utterances": [{"speaker", "text", "start", "end"}]}, and writes the
// utterances sorted by start time.
func (p *transcriptPlugin) Apply(ctx context.Context, _ map[string]any, cfg plugin.ApplyConfig) (*plugin.Result, error) {
	p.succeeded = false
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources to transcribe")
	}

	data := make(Data, len(cfg.Sources))
	outputs := make(map[string]string, len(cfg.Sources))
	paths := pluginutil.OutputPaths(cfg.OutputDir, cfg.Sources, outputSuffix)
	for _, source := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		transcript, err := Parse(source)
		if err != nil {
			return nil, err
		}

		out := paths[source]
		if err := pluginutil.WriteYAML(out, transcript); err != nil {
			return nil, err
		}
		data[source] = transcript
		outputs[source] = out
	}

	p.succeeded = true
	return &plugin.Result{SourceToOutput: outputs, Data: data}, nil
}

func (p *transcriptPlugin) WasSuccessful() bool {
	return p.succeeded
}

// Parse decodes and validates one source file.
func Parse(source string) (*model.Transcript, error) {
	var transcript model.Transcript
	if err := config.DecodeFile(gailboterrors.DocumentTranscript, source, &transcript); err != nil {
		return nil, err
	}
	if err := config.ValidateStruct(&transcript); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	transcript.Source = source
	sort.SliceStable(transcript.Utterances, func(i, j int) bool {
		return transcript.Utterances[i].Start < transcript.Utterances[j].Start
	})
	return &transcript, nil
}
