package pipeline

import "time"

// State is the execution state of a Component.
type State string

const (
	// StateReady marks a component that has not run during the current execution.
	StateReady State = "ready"
	// StateSuccessful marks a component whose processing chain completed.
	StateSuccessful State = "successful"
	// StateFailed marks a component whose processing chain returned an error or panicked.
	StateFailed State = "failed"
)

// Component is a named node of the dependency graph. It wraps the
// user-supplied object and the state the executor records for it.
//
// Only the pipeline driver mutates a Component, and only between layer
// barriers, so no locking is needed.
type Component struct {
	name    string
	object  any
	state   State
	runtime time.Duration
	result  *Stream
	err     error
}

func newComponent(name string, object any) *Component {
	return &Component{name: name, object: object, state: StateReady}
}

// Name returns the unique component name.
func (c *Component) Name() string { return c.name }

// InstantiatedObject returns the object supplied at registration, unchanged.
func (c *Component) InstantiatedObject() any { return c.object }

// State returns the current execution state.
func (c *Component) State() State { return c.state }

// SetState overwrites the execution state.
func (c *Component) SetState(state State) { c.state = state }

// Runtime returns the time the processing chain took on success.
func (c *Component) Runtime() time.Duration { return c.runtime }

// SetRuntime overwrites the recorded runtime.
func (c *Component) SetRuntime(d time.Duration) { c.runtime = d }

// Result returns the published Stream, nil unless the component succeeded.
func (c *Component) Result() *Stream { return c.result }

// SetResult overwrites the published Stream.
func (c *Component) SetResult(s *Stream) { c.result = s }

// Err returns the failure captured during the last execution, if any.
func (c *Component) Err() error { return c.err }

// Outcome returns a tagged view of the last execution.
func (c *Component) Outcome() Outcome {
	switch c.state {
	case StateSuccessful:
		return Succeeded{Result: c.result, Runtime: c.runtime}
	case StateFailed:
		return Failed{Err: c.err}
	default:
		return Pending{}
	}
}

func (c *Component) succeed(result *Stream, runtime time.Duration) {
	if result == nil {
		result = NewStream(nil)
	}
	c.state = StateSuccessful
	c.result = result
	c.runtime = runtime
	c.err = nil
}

func (c *Component) fail(err error) {
	c.state = StateFailed
	c.result = nil
	c.runtime = 0
	c.err = err
}

func (c *Component) reset() {
	c.state = StateReady
	c.runtime = 0
	c.result = nil
	c.err = nil
}

// Outcome is one of Pending, Succeeded or Failed.
type Outcome interface {
	outcome()
}

// Pending reports a component that has not reached a terminal state.
type Pending struct{}

// Succeeded reports a component that published a result.
type Succeeded struct {
	Result  *Stream
	Runtime time.Duration
}

// Failed reports a component whose processing chain failed.
type Failed struct {
	Err error
}

func (Pending) outcome()   {}
func (Succeeded) outcome() {}
func (Failed) outcome()    {}
