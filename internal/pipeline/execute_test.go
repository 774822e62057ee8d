package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	pipelineerrors "github.com/gailbot/gailbot/pkg/errors"
)

func TestExecuteRequiresLogic(t *testing.T) {
	t.Parallel()

	p := New()
	require.ErrorIs(t, p.Execute(context.Background()), ErrUndefinedLogic)
}

func TestExecuteChainSucceeds(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := New()
	p.SetLogic(newTestLogic(t, rec, map[string]behaviour{"A": {}, "B": {}}))
	p.SetBaseInput("recording.wav")
	mustAdd(t, p, "A")
	mustAdd(t, p, "B", "A")

	require.NoError(t, p.Execute(context.Background()))

	require.ElementsMatch(t, []string{"A", "B"}, p.SuccessfulComponents())
	require.Empty(t, p.FailedComponents())
	require.Empty(t, p.UnexecutedComponents())

	b, err := p.Component("B")
	require.NoError(t, err)
	out := b.Result().Data().(map[string]any)
	require.Equal(t, "obj-B", out["object"])
	require.Equal(t, "recording.wav", out["in:"+BaseKey])
	require.Equal(t, "A", out["in:A"].(map[string]any)["name"])

	require.IsType(t, Succeeded{}, b.Outcome())
}

func TestExecuteFailureStarvesDependents(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := New()
	p.SetLogic(newTestLogic(t, rec, map[string]behaviour{"A": {fail: true}, "B": {}}))
	mustAdd(t, p, "A")
	mustAdd(t, p, "B", "A")

	require.NoError(t, p.Execute(context.Background()))

	require.Equal(t, []string{"A"}, p.FailedComponents())
	require.Equal(t, []string{"B"}, p.UnexecutedComponents())
	require.Empty(t, p.SuccessfulComponents())
	require.Zero(t, rec.callCount("B"))

	a, err := p.Component("A")
	require.NoError(t, err)
	require.Nil(t, a.Result())
	require.Zero(t, a.Runtime())
	require.ErrorIs(t, a.Err(), errBoom)

	var execErr *pipelineerrors.ExecutionError
	require.ErrorAs(t, a.Err(), &execErr)
	require.Equal(t, "A", execErr.Component)
	require.Equal(t, "process", execErr.Stage)

	failed, ok := a.Outcome().(Failed)
	require.True(t, ok)
	require.ErrorIs(t, failed.Err, errBoom)

	b, err := p.Component("B")
	require.NoError(t, err)
	require.Equal(t, StateReady, b.State())
	require.Equal(t, Pending{}, b.Outcome())
}

func TestExecuteFailureIsolatesSiblings(t *testing.T) {
	t.Parallel()

	p := New()
	p.SetLogic(newTestLogic(t, newRecorder(), map[string]behaviour{
		"root": {}, "bad": {fail: true}, "good": {}, "after_bad": {}, "after_good": {},
	}))
	mustAdd(t, p, "root")
	mustAdd(t, p, "bad", "root")
	mustAdd(t, p, "good", "root")
	mustAdd(t, p, "after_bad", "bad", "good")
	mustAdd(t, p, "after_good", "good")

	require.NoError(t, p.Execute(context.Background()))

	require.Equal(t, []string{"after_good", "good", "root"}, p.SuccessfulComponents())
	require.Equal(t, []string{"bad"}, p.FailedComponents())
	require.Equal(t, []string{"after_bad"}, p.UnexecutedComponents())
}

func TestExecuteContainsPanics(t *testing.T) {
	t.Parallel()

	p := New()
	p.SetLogic(newTestLogic(t, newRecorder(), map[string]behaviour{"A": {panic: true}, "B": {}}))
	mustAdd(t, p, "A")
	mustAdd(t, p, "B")

	require.NotPanics(t, func() {
		require.NoError(t, p.Execute(context.Background()))
	})

	require.Equal(t, []string{"A"}, p.FailedComponents())
	require.Equal(t, []string{"B"}, p.SuccessfulComponents())

	a, err := p.Component("A")
	require.NoError(t, err)
	require.ErrorContains(t, a.Err(), "component exploded")
}

func TestExecuteRunsDependenciesFirstAndAtMostOnce(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := New(WithWorkers(2))
	p.SetLogic(newTestLogic(t, rec, map[string]behaviour{
		"A": {delay: 10 * time.Millisecond},
		"B": {delay: 5 * time.Millisecond},
		"C": {},
		"D": {},
	}))
	mustAdd(t, p, "A")
	mustAdd(t, p, "B")
	mustAdd(t, p, "C", "A")
	mustAdd(t, p, "D", "B", "C")

	require.NoError(t, p.Execute(context.Background()))
	require.Len(t, p.SuccessfulComponents(), 4)

	for _, name := range []string{"A", "B", "C", "D"} {
		require.Equal(t, 1, rec.callCount(name), name)
	}

	edges := [][2]string{{"C", "A"}, {"D", "B"}, {"D", "C"}}
	for _, e := range edges {
		dependent, dependency := e[0], e[1]
		require.False(t, rec.started[dependent].Before(rec.finished[dependency]),
			"%s started before %s finished", dependent, dependency)
	}
}

func TestExecuteLayerBarrier(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := New(WithWorkers(4))
	p.SetLogic(newTestLogic(t, rec, map[string]behaviour{
		"slow": {delay: 30 * time.Millisecond},
		"fast": {},
		"next": {},
	}))
	mustAdd(t, p, "slow")
	mustAdd(t, p, "fast")
	mustAdd(t, p, "next", "fast")

	require.NoError(t, p.Execute(context.Background()))

	// next only depends on fast, but the whole first layer must finish first.
	require.False(t, rec.started["next"].Before(rec.finished["slow"]))
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	t.Parallel()

	behaviours := map[string]behaviour{}
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, name := range names {
		behaviours[name] = behaviour{delay: 10 * time.Millisecond}
	}

	rec := newRecorder()
	p := New(WithWorkers(2))
	p.SetLogic(newTestLogic(t, rec, behaviours))
	for _, name := range names {
		mustAdd(t, p, name)
	}

	require.NoError(t, p.Execute(context.Background()))
	require.Len(t, p.SuccessfulComponents(), len(names))
	require.LessOrEqual(t, rec.peak.Load(), int32(2))
}

func TestExecuteRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	p := New()
	p.SetLogic(newTestLogic(t, rec, map[string]behaviour{"A": {}, "B": {fail: true}, "C": {}}))
	p.SetBaseInput(42)
	mustAdd(t, p, "A")
	mustAdd(t, p, "B", "A")
	mustAdd(t, p, "C", "B")

	require.NoError(t, p.Execute(context.Background()))
	first := [][]string{p.SuccessfulComponents(), p.FailedComponents(), p.UnexecutedComponents()}

	require.NoError(t, p.Execute(context.Background()))
	second := [][]string{p.SuccessfulComponents(), p.FailedComponents(), p.UnexecutedComponents()}

	require.Equal(t, first, second)
	require.Equal(t, 2, rec.callCount("A"))
	require.Equal(t, 2, rec.callCount("B"))
	require.Zero(t, rec.callCount("C"))
	require.Len(t, p.ComponentNames(), 3)
}

func TestExecuteStopsBetweenLayersWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	reg := NewRegistry()
	pre := func(inputs map[string]*Stream) (any, error) { return nil, nil }
	post := func(output any) (*Stream, error) { return NewStream(output), nil }
	require.NoError(t, reg.AddComponentLogic("first", pre, func(context.Context, any, any) (any, error) {
		cancel()
		return "done", nil
	}, post))
	require.NoError(t, reg.AddComponentLogic("second", pre, func(context.Context, any, any) (any, error) {
		return "done", nil
	}, post))

	p := New()
	p.SetLogic(reg)
	mustAdd(t, p, "first")
	mustAdd(t, p, "second", "first")

	require.ErrorIs(t, p.Execute(ctx), context.Canceled)
	require.Equal(t, []string{"first"}, p.SuccessfulComponents())
	require.Equal(t, []string{"second"}, p.UnexecutedComponents())
}

func TestExecuteNilPostProcessorResultStillSucceeds(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.AddComponentLogic("A",
		func(map[string]*Stream) (any, error) { return nil, nil },
		func(context.Context, any, any) (any, error) { return nil, nil },
		func(any) (*Stream, error) { return nil, nil },
	))

	p := New()
	p.SetLogic(reg)
	mustAdd(t, p, "A")
	require.NoError(t, p.Execute(context.Background()))

	summary := p.ExecutionSummary()
	require.Equal(t, StateSuccessful, summary["A"].State)
	require.NotNil(t, summary["A"].Result)
	require.Nil(t, summary["A"].Result.Data())
}

func TestExecutionSummaryReportsEveryComponent(t *testing.T) {
	t.Parallel()

	p := New()
	p.SetLogic(newTestLogic(t, newRecorder(), map[string]behaviour{"A": {delay: time.Millisecond}, "B": {fail: true}, "C": {}}))
	mustAdd(t, p, "A")
	mustAdd(t, p, "B")
	mustAdd(t, p, "C", "B")

	require.NoError(t, p.Execute(context.Background()))

	summary := p.ExecutionSummary()
	require.Len(t, summary, 3)
	require.Equal(t, StateSuccessful, summary["A"].State)
	require.Positive(t, summary["A"].Runtime)
	require.NotNil(t, summary["A"].Result)
	require.Equal(t, StateFailed, summary["B"].State)
	require.Nil(t, summary["B"].Result)
	require.Error(t, summary["B"].Err)
	require.Equal(t, StateReady, summary["C"].State)
	require.Nil(t, summary["C"].Result)
}

func TestExecuteEmitsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(recorder),
	)

	p := New(WithTracer(provider.Tracer("test")), WithName("analysis"))
	p.SetLogic(newTestLogic(t, newRecorder(), map[string]behaviour{"A": {}, "B": {fail: true}}))
	mustAdd(t, p, "A")
	mustAdd(t, p, "B")
	require.NoError(t, p.Execute(context.Background()))

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	states := map[string]string{}
	for _, span := range spans {
		if span.Name() != "pipeline.component" {
			require.Equal(t, "pipeline.execute", span.Name())
			continue
		}
		var name, state string
		for _, attr := range span.Attributes() {
			switch attr.Key {
			case attribute.Key("component.name"):
				name = attr.Value.AsString()
			case attribute.Key("component.state"):
				state = attr.Value.AsString()
			}
		}
		states[name] = state
	}
	require.Equal(t, map[string]string{"A": "successful", "B": "failed"}, states)
}
