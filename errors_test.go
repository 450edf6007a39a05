package trickle_test

import (
	"errors"
	"testing"

	"github.com/pwalus/trickle"
	"github.com/stretchr/testify/assert"
)

func TestReason_Recoverable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		reason trickle.Reason
		want   bool
	}{
		{trickle.ReasonNone, false},
		{trickle.ReasonTimeout, true},
		{trickle.ReasonNetwork, true},
		{trickle.ReasonServer, true},
		{trickle.ReasonServerFatal, false},
		{trickle.ReasonMalformed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.reason.Recoverable(), "reason %q", tt.reason)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := &trickle.TransportError{Reason: trickle.ReasonNetwork, Err: cause}

	assert.Equal(t, "connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	var te *trickle.TransportError
	assert.ErrorAs(t, error(err), &te)
	assert.Equal(t, trickle.ReasonNetwork, te.Reason)
}

func TestTransportError_NoCause(t *testing.T) {
	t.Parallel()
	err := &trickle.TransportError{Reason: trickle.ReasonTimeout}
	assert.Equal(t, "timeout", err.Error())
}

func TestSessionState_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state trickle.SessionState
		want  string
	}{
		{trickle.SessionIdle, "idle"},
		{trickle.SessionConnecting, "connecting"},
		{trickle.SessionActive, "active"},
		{trickle.SessionFinalizing, "finalizing"},
		{trickle.SessionCompleted, "completed"},
		{trickle.SessionFailed, "failed"},
		{trickle.SessionAborted, "aborted"},
		{trickle.SessionState(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestSessionState_Terminal(t *testing.T) {
	t.Parallel()
	terminal := map[trickle.SessionState]bool{
		trickle.SessionCompleted: true,
		trickle.SessionFailed:    true,
		trickle.SessionAborted:   true,
	}
	for s := trickle.SessionIdle; s <= trickle.SessionAborted; s++ {
		assert.Equal(t, terminal[s], s.Terminal(), "state %v", s)
	}
}
