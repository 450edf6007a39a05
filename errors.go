package trickle

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrConnectTimeout indicates no data arrived within the connection window.
	ErrConnectTimeout = errors.New("no data within connection window")

	// ErrIdleTimeout indicates the stream stalled between fragments.
	ErrIdleTimeout = errors.New("no data within idle window")

	// ErrMalformedStream indicates too many consecutive unparseable frames.
	ErrMalformedStream = errors.New("too many consecutive malformed frames")
)

// Reason classifies why a streaming attempt failed. The retry loop uses
// Recoverable() to decide whether another attempt is worthwhile.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonTimeout     Reason = "timeout"      // no data within the connection or idle window
	ReasonNetwork     Reason = "network"      // transport-level drop
	ReasonServer      Reason = "server"       // explicit error frame from the service
	ReasonServerFatal Reason = "server_fatal" // error frame marked fatal by the payload
	ReasonMalformed   Reason = "malformed"    // repeated unparseable frames
)

// Recoverable reports whether a failure with this reason may be retried.
func (r Reason) Recoverable() bool {
	switch r {
	case ReasonTimeout, ReasonNetwork, ReasonServer:
		return true
	}
	return false
}

// TransportError lets a Transport tag an error with a failure Reason so
// the session can classify it without knowing the transport's concrete
// error types.
type TransportError struct {
	Reason Reason
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
