package trickle

// Event is a sealed interface representing a transport event.
// Events are purely semantic. Connection-level failures come from
// Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventData carries one raw fragment of the response text. Fragments
// concatenated in delivery order reconstruct the full response; no
// assumption holds about fragment size or alignment with thinking-marker
// boundaries.
type EventData struct {
	Fragment string
}

func (EventData) event() {}

// EventCompletion signals normal end of the response stream.
type EventCompletion struct {
	Model        string
	FinishReason FinishReason
	Usage        Usage
}

func (EventCompletion) event() {}

// EventErrorFrame carries an explicit error payload from the service.
// Fatal marks errors the service classifies as non-retryable.
type EventErrorFrame struct {
	Code    string
	Message string
	Fatal   bool
}

func (EventErrorFrame) event() {}

// EventMalformed reports a single frame the transport could not parse.
// The frame is skipped; the session decides whether repeated malformed
// frames escalate to a failure.
type EventMalformed struct {
	Cause string
}

func (EventMalformed) event() {}

// Interface compliance checks.
var (
	_ Event = EventData{}
	_ Event = EventCompletion{}
	_ Event = EventErrorFrame{}
	_ Event = EventMalformed{}
)
