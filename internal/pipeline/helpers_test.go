package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// recorder tracks when each component's processor starts and finishes.
type recorder struct {
	mu       sync.Mutex
	started  map[string]time.Time
	finished map[string]time.Time
	calls    map[string]int
	running  atomic.Int32
	peak     atomic.Int32
}

func newRecorder() *recorder {
	return &recorder{
		started:  make(map[string]time.Time),
		finished: make(map[string]time.Time),
		calls:    make(map[string]int),
	}
}

func (r *recorder) enter(name string) {
	n := r.running.Add(1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	r.mu.Lock()
	r.started[name] = time.Now()
	r.calls[name]++
	r.mu.Unlock()
}

func (r *recorder) leave(name string) {
	r.mu.Lock()
	r.finished[name] = time.Now()
	r.mu.Unlock()
	r.running.Add(-1)
}

func (r *recorder) callCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

// behaviour describes what a test component's processor does.
type behaviour struct {
	fail  bool
	panic bool
	delay time.Duration
}

// newTestLogic registers a chain for every name in behaviours. The processor
// concatenates the payloads of its dependencies with its own name so tests
// can assert on what flowed through the graph.
func newTestLogic(t *testing.T, rec *recorder, behaviours map[string]behaviour) *Registry {
	t.Helper()

	reg := NewRegistry()
	for name, b := range behaviours {
		pre := func(inputs map[string]*Stream) (any, error) {
			return inputs, nil
		}
		proc := func(ctx context.Context, object any, input any) (any, error) {
			rec.enter(name)
			defer rec.leave(name)

			if b.delay > 0 {
				time.Sleep(b.delay)
			}
			if b.panic {
				panic("component exploded")
			}
			if b.fail {
				return nil, errBoom
			}

			inputs := input.(map[string]*Stream)
			out := map[string]any{"name": name, "object": object}
			for key, stream := range inputs {
				out["in:"+key] = stream.Data()
			}
			return out, nil
		}
		post := func(output any) (*Stream, error) {
			return NewStream(output), nil
		}
		require.NoError(t, reg.AddComponentLogic(name, pre, proc, post))
	}
	return reg
}

func mustAdd(t *testing.T, p *Pipeline, name string, deps ...string) {
	t.Helper()
	ok, err := p.AddComponent(name, "obj-"+name, deps...)
	require.NoError(t, err)
	require.True(t, ok)
}
