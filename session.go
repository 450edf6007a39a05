package trickle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// SessionState is the lifecycle state of one streaming attempt.
// Transitions are one-directional; a terminal state is never left. A
// retry creates a new Session rather than resurrecting this one.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionConnecting
	SessionActive
	SessionFinalizing
	SessionCompleted
	SessionFailed
	SessionAborted
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionConnecting:
		return "connecting"
	case SessionActive:
		return "active"
	case SessionFinalizing:
		return "finalizing"
	case SessionCompleted:
		return "completed"
	case SessionFailed:
		return "failed"
	case SessionAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether the state is one of the three end states.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionAborted
}

// Session timeout and tolerance defaults.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultMalformedLimit = 5
)

// SessionConfig bounds one streaming attempt.
type SessionConfig struct {
	// ConnectTimeout is the window for the first event after open.
	ConnectTimeout time.Duration
	// IdleTimeout is the window between subsequent events.
	IdleTimeout time.Duration
	// MalformedLimit is the number of consecutive unparseable frames
	// tolerated before the attempt fails.
	MalformedLimit int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MalformedLimit <= 0 {
		c.MalformedLimit = DefaultMalformedLimit
	}
	return c
}

// Session drives one attempt at consuming a Transport: it opens the
// stream, feeds each fragment through the buffers, notifies the
// scheduler, and resolves to exactly one Outcome. Run returns that
// Outcome as its single return value, which makes the at-most-once
// terminal guarantee structural rather than a matter of flags.
type Session struct {
	transport Transport
	buffers   *Buffers
	scheduler *Scheduler
	cfg       SessionConfig

	mu    sync.Mutex
	state SessionState
}

// NewSession creates a session over the given transport writing into
// buffers. One session mutates a given Buffers instance at a time;
// callers must cancel a previous session before starting a new one on
// the same buffers.
func NewSession(transport Transport, buffers *Buffers, scheduler *Scheduler, cfg SessionConfig) *Session {
	return &Session{
		transport: transport,
		buffers:   buffers,
		scheduler: scheduler,
		cfg:       cfg.withDefaults(),
		state:     SessionIdle,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

type nextResult struct {
	evt Event
	err error
}

// readEvents pulls from the stream until a terminal error or until the
// session stops listening. Closing the stream unblocks a pending Next.
func readEvents(stream Stream, out chan<- nextResult, stop <-chan struct{}) {
	for {
		evt, err := stream.Next()
		select {
		case out <- nextResult{evt: evt, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

// Run consumes one streaming attempt and returns its Outcome.
// Cancellation is cooperative: the abort signal is checked immediately
// after open and before each fragment, never mid-scan. On any terminal
// signal the residue is flushed exactly once and one forced render is
// issued before Run returns.
func (s *Session) Run(ctx context.Context, req Request) Outcome {
	s.setState(SessionConnecting)

	stream, err := s.transport.Open(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return s.terminal(Outcome{Status: StatusAborted, Err: ctx.Err()}, nil)
		}
		return s.terminal(classifyFailure(err), nil)
	}

	if err := ctx.Err(); err != nil {
		return s.terminal(Outcome{Status: StatusAborted, Err: err}, stream)
	}

	events := make(chan nextResult)
	stop := make(chan struct{})
	defer close(stop)
	go readEvents(stream, events, stop)

	timer := time.NewTimer(s.cfg.ConnectTimeout)
	defer timer.Stop()

	malformed := 0
	for {
		select {
		case <-ctx.Done():
			return s.terminal(Outcome{Status: StatusAborted, Err: ctx.Err()}, stream)

		case <-timer.C:
			cause := ErrIdleTimeout
			if s.State() == SessionConnecting {
				cause = ErrConnectTimeout
			}
			return s.terminal(Outcome{Status: StatusFailed, Reason: ReasonTimeout, Err: cause}, stream)

		case res := <-events:
			// Abort check before processing, in case the select
			// raced a ready event against cancellation.
			if err := ctx.Err(); err != nil {
				return s.terminal(Outcome{Status: StatusAborted, Err: err}, stream)
			}
			if s.State() == SessionConnecting {
				s.setState(SessionActive)
			}

			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					// The wire ended without a completion frame.
					err := fmt.Errorf("unexpected end of stream: %w", res.err)
					return s.terminal(Outcome{Status: StatusFailed, Reason: ReasonNetwork, Err: err}, stream)
				}
				return s.terminal(classifyFailure(res.err), stream)
			}

			switch evt := res.evt.(type) {
			case EventData:
				malformed = 0
				snap := s.buffers.Ingest(evt.Fragment)
				s.scheduler.BufferChanged(snap)
				resetTimer(timer, s.cfg.IdleTimeout)

			case EventMalformed:
				malformed++
				if malformed >= s.cfg.MalformedLimit {
					err := fmt.Errorf("%w (last: %s)", ErrMalformedStream, evt.Cause)
					return s.terminal(Outcome{Status: StatusFailed, Reason: ReasonMalformed, Err: err}, stream)
				}
				resetTimer(timer, s.cfg.IdleTimeout)

			case EventErrorFrame:
				reason := ReasonServer
				if evt.Fatal {
					reason = ReasonServerFatal
				}
				err := fmt.Errorf("server error %s: %s", evt.Code, evt.Message)
				return s.terminal(Outcome{Status: StatusFailed, Reason: reason, Err: err}, stream)

			case EventCompletion:
				out := Outcome{
					Status:       StatusCompleted,
					Model:        evt.Model,
					FinishReason: evt.FinishReason,
					Usage:        evt.Usage,
				}
				return s.terminal(out, stream)
			}
		}
	}
}

// terminal closes the stream, flushes residue exactly once, issues the
// forced render, and resolves the state machine.
func (s *Session) terminal(out Outcome, stream Stream) Outcome {
	s.setState(SessionFinalizing)
	if stream != nil {
		_ = stream.Close()
	}
	snap := s.buffers.FlushResidue()
	s.scheduler.ForceRender(snap)
	out.Truncated = snap.Truncated

	switch out.Status {
	case StatusCompleted:
		s.setState(SessionCompleted)
	case StatusAborted:
		s.setState(SessionAborted)
	default:
		s.setState(SessionFailed)
	}
	return out
}

// classifyFailure maps a transport error to a failed Outcome. Transports
// tag errors with a Reason via TransportError; anything untagged is a
// transport-level drop.
func classifyFailure(err error) Outcome {
	var te *TransportError
	if errors.As(err, &te) && te.Reason != ReasonNone {
		return Outcome{Status: StatusFailed, Reason: te.Reason, Err: err}
	}
	return Outcome{Status: StatusFailed, Reason: ReasonNetwork, Err: err}
}

// resetTimer drains and re-arms a timer for the next event window.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
