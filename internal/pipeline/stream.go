package pipeline

// Stream carries one payload from a component to its dependents. A nil
// *Stream means the component never produced a result; a Stream holding a nil
// payload means it ran and produced nothing.
type Stream struct {
	data any
}

// NewStream boxes payload. Any value is accepted.
func NewStream(payload any) *Stream {
	return &Stream{data: payload}
}

// Data returns the boxed payload.
func (s *Stream) Data() any {
	if s == nil {
		return nil
	}
	return s.data
}
