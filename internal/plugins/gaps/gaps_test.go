package gapsplugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gailbot/gailbot/internal/model"
	"github.com/gailbot/gailbot/internal/plugin"
	turnsplugin "github.com/gailbot/gailbot/internal/plugins/turns"
)

func conversation() []model.Turn {
	return turnsplugin.Merge([]model.Utterance{
		{Speaker: "A", Text: "so", Start: 0, End: 0.5},
		{Speaker: "A", Text: "anyway", Start: 1.0, End: 1.6},
		{Speaker: "A", Text: "right", Start: 1.7, End: 2.0},
		{Speaker: "B", Text: "yes", Start: 3.2, End: 3.5},
		{Speaker: "A", Text: "ok", Start: 3.6, End: 4.0},
	})
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	events := Annotate(conversation(), DefaultThreshold)

	require.Equal(t, []model.Event{
		{Kind: model.EventTurn, Speaker: "A", Text: "so", Start: 0, End: 0.5},
		{Kind: model.EventPause, Speaker: "A", Start: 0.5, End: 1.0},
		{Kind: model.EventTurn, Speaker: "A", Text: "anyway right", Start: 1.0, End: 2.0},
		{Kind: model.EventGap, Start: 2.0, End: 3.2},
		{Kind: model.EventTurn, Speaker: "B", Text: "yes", Start: 3.2, End: 3.5},
		{Kind: model.EventTurn, Speaker: "A", Text: "ok", Start: 3.6, End: 4.0},
	}, events)
}

func TestAnnotateThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold float64
		silences  int
	}{
		{name: "strict", threshold: 0.05, silences: 4},
		{name: "default", threshold: DefaultThreshold, silences: 2},
		{name: "loose", threshold: 1.0, silences: 1},
		{name: "off", threshold: 10, silences: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			count := 0
			for _, e := range Annotate(conversation(), tc.threshold) {
				if e.IsSilence() {
					count++
				}
			}
			require.Equal(t, tc.silences, count)
		})
	}
}

func TestAnnotateTurnWithoutParts(t *testing.T) {
	t.Parallel()

	events := Annotate([]model.Turn{{Speaker: "A", Text: "hi", Start: 0, End: 1}}, DefaultThreshold)
	require.Equal(t, []model.Event{{Kind: model.EventTurn, Speaker: "A", Text: "hi", Start: 0, End: 1}}, events)
}

func TestApplyUsesThresholdOption(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	deps := map[string]any{turnsplugin.Name: turnsplugin.Data{"/data/one.json": conversation()}}

	p := New()
	result, err := p.Apply(context.Background(), deps, plugin.ApplyConfig{
		OutputDir: out,
		Options:   map[string]any{"threshold": 1.0},
	})
	require.NoError(t, err)
	require.True(t, p.WasSuccessful())
	require.Equal(t, filepath.Join(out, "one.gaps.yaml"), result.SourceToOutput["/data/one.json"])

	events := result.Data.(Data)["/data/one.json"]
	require.Len(t, events, 4)

	_, err = p.Apply(context.Background(), deps, plugin.ApplyConfig{OutputDir: out, Options: map[string]any{"threshold": -1}})
	require.Error(t, err)
	require.False(t, p.WasSuccessful())
}
