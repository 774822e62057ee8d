// Package model holds the conversation data passed between analysis plugins.
// Times are seconds from the start of the recording.
package model

// Utterance is one stretch of speech attributed to a single speaker.
type Utterance struct {
	Speaker string  `yaml:"speaker" json:"speaker" validate:"required"`
	Text    string  `yaml:"text" json:"text"`
	Start   float64 `yaml:"start" json:"start" validate:"gte=0"`
	End     float64 `yaml:"end" json:"end" validate:"gtefield=Start"`
}

// Duration returns End - Start.
func (u Utterance) Duration() float64 {
	return u.End - u.Start
}

// Transcript is the parsed content of one source file.
type Transcript struct {
	Source     string      `yaml:"-" json:"-"`
	Utterances []Utterance `yaml:"utterances" json:"utterances" validate:"dive"`
}

// Turn is a run of consecutive utterances by the same speaker. Parts keeps
// the merged utterances in order.
type Turn struct {
	Speaker string      `yaml:"speaker"`
	Text    string      `yaml:"text"`
	Start   float64     `yaml:"start"`
	End     float64     `yaml:"end"`
	Parts   []Utterance `yaml:"parts"`
}

// EventKind classifies an Event.
type EventKind string

const (
	// EventTurn is a speaker's turn.
	EventTurn EventKind = "turn"
	// EventPause is silence within the same speaker's talk.
	EventPause EventKind = "pause"
	// EventGap is silence between two different speakers.
	EventGap EventKind = "gap"
)

// Event is one entry of an annotated conversation: a turn or a silence.
// Speaker is empty for gaps.
type Event struct {
	Kind    EventKind `yaml:"kind"`
	Speaker string    `yaml:"speaker,omitempty"`
	Text    string    `yaml:"text,omitempty"`
	Start   float64   `yaml:"start"`
	End     float64   `yaml:"end"`
}

// Duration returns End - Start.
func (e Event) Duration() float64 {
	return e.End - e.Start
}

// IsSilence reports whether the event is a pause or a gap.
func (e Event) IsSilence() bool {
	return e.Kind == EventPause || e.Kind == EventGap
}

// Speakers lists the speakers of turns in order of first appearance.
func Speakers(turns []Turn) []string {
	seen := make(map[string]struct{}, len(turns))
	var out []string
	for _, turn := range turns {
		if _, ok := seen[turn.Speaker]; ok {
			continue
		}
		seen[turn.Speaker] = struct{}{}
		out = append(out, turn.Speaker)
	}
	return out
}
