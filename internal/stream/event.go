package stream

import "time"

// EventType tags the closed set of streaming event variants.
type EventType string

const (
	EventConnected EventType = "connected"
	EventProgress  EventType = "progress"
	EventChunk     EventType = "chunk"
	EventAnalysis  EventType = "analysis"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is the sealed tagged-variant interface over streaming events. Each
// variant carries its own payload and a creation timestamp. Events exist only
// for the duration of one session.
type Event interface {
	Type() EventType
	At() time.Time
	sealedEvent()
}

// Connected is emitted exactly once, immediately, before any work begins.
type Connected struct {
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

func (Connected) Type() EventType { return EventConnected }
func (e Connected) At() time.Time { return e.Timestamp }
func (Connected) sealedEvent() {}

// Progress reports completion percentage milestones.
type Progress struct {
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

func (Progress) Type() EventType { return EventProgress }
func (e Progress) At() time.Time { return e.Timestamp }
func (Progress) sealedEvent() {}

// Chunk carries one incremental text fragment.
type Chunk struct {
	Text      string    `json:"text"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

func (Chunk) Type() EventType { return EventChunk }
func (e Chunk) At() time.Time { return e.Timestamp }
func (Chunk) sealedEvent() {}

// Analysis carries the accumulated full text, the delta count and, when the
// producer supplies one, a structured result.
type Analysis struct {
	Text      string    `json:"text"`
	Deltas    int       `json:"deltas"`
	Result    any       `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (Analysis) Type() EventType { return EventAnalysis }
func (e Analysis) At() time.Time { return e.Timestamp }
func (Analysis) sealedEvent() {}

// Complete terminates every session, success or not.
type Complete struct {
	Deltas         int       `json:"deltas"`
	ResponseLength int       `json:"response_length"`
	Mode           string    `json:"mode"`
	Timestamp      time.Time `json:"timestamp"`
}

func (Complete) Type() EventType { return EventComplete }
func (e Complete) At() time.Time { return e.Timestamp }
func (Complete) sealedEvent() {}

// Error reports a failure. It is followed by Complete; a session never ends
// without a terminal event.
type Error struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (Error) Type() EventType { return EventError }
func (e Error) At() time.Time { return e.Timestamp }
func (Error) sealedEvent() {}
