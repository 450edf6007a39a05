package trickle

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving events.
	StreamStateComplete                     // Next() returned io.EOF after a completion frame.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream uses a pull-based iterator pattern. Cancellation flows through
// the context passed to Transport.Open().
//
// Next() returns the next semantic event. It returns io.EOF after the
// completion frame has been delivered. A raw EOF from the wire without a
// completion frame is a connection-level failure and surfaces as a
// non-EOF error.
//
// State() returns the current StreamState. Callers can use it to
// distinguish a normally completed stream from a dropped one.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Close() error
}
