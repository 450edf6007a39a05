package sse_test

import (
	"context"
	"io"
	"testing"

	"github.com/pwalus/trickle"
	"github.com/pwalus/trickle/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStream connects to a server serving body and returns the stream.
func openStream(t *testing.T, body string) trickle.Stream {
	t.Helper()
	srv := sseServer(t, body)
	client := sse.New("key", sse.WithBaseURL(srv.URL))
	s, err := client.Open(context.Background(), userRequest())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// drain collects events until Next returns an error.
func drain(t *testing.T, s trickle.Stream) ([]trickle.Event, error) {
	t.Helper()
	var events []trickle.Event
	for {
		evt, err := s.Next()
		if err != nil {
			return events, err
		}
		events = append(events, evt)
	}
}

func TestStream_TextFragments(t *testing.T) {
	t.Parallel()
	s := openStream(t, sseBody(
		`{"model":"gpt-test","choices":[{"delta":{"content":"Hello"},"finish_reason":null}]}`,
		`{"model":"gpt-test","choices":[{"delta":{"content":", world"},"finish_reason":null}]}`,
		`{"model":"gpt-test","choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`{"model":"gpt-test","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":3}}`,
		`[DONE]`,
	))

	events, err := drain(t, s)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 3)

	assert.Equal(t, trickle.EventData{Fragment: "Hello"}, events[0])
	assert.Equal(t, trickle.EventData{Fragment: ", world"}, events[1])

	done, ok := events[2].(trickle.EventCompletion)
	require.True(t, ok)
	assert.Equal(t, "gpt-test", done.Model)
	assert.Equal(t, trickle.FinishStop, done.FinishReason)
	assert.Equal(t, trickle.Usage{PromptTokens: 5, CompletionTokens: 3}, done.Usage)

	assert.Equal(t, trickle.StreamStateComplete, s.State())
}

func TestStream_FinishReasons(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want trickle.FinishReason
	}{
		{raw: "stop", want: trickle.FinishStop},
		{raw: "length", want: trickle.FinishLength},
		{raw: "content_filter", want: trickle.FinishFilter},
		{raw: "something_new", want: trickle.FinishUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			s := openStream(t, sseBody(
				`{"choices":[{"delta":{},"finish_reason":"`+tt.raw+`"}]}`,
				`[DONE]`,
			))
			events, err := drain(t, s)
			require.ErrorIs(t, err, io.EOF)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0].(trickle.EventCompletion).FinishReason)
		})
	}
}

func TestStream_MalformedFrameSurfacedAndSkipped(t *testing.T) {
	t.Parallel()
	s := openStream(t, sseBody(
		`{"choices":[{"delta":{"content":"a"},"finish_reason":null}]}`,
		`{not json at all`,
		`{"choices":[{"delta":{"content":"b"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	))

	events, err := drain(t, s)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 4)

	assert.Equal(t, trickle.EventData{Fragment: "a"}, events[0])
	malformed, ok := events[1].(trickle.EventMalformed)
	require.True(t, ok)
	assert.Contains(t, malformed.Cause, "invalid frame JSON")
	assert.Equal(t, trickle.EventData{Fragment: "b"}, events[2])
}

func TestStream_ErrorFrame(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		errType   string
		wantFatal bool
	}{
		{name: "overloaded is transient", errType: "overloaded_error", wantFatal: false},
		{name: "server error is transient", errType: "server_error", wantFatal: false},
		{name: "rate limit is transient", errType: "rate_limit_error", wantFatal: false},
		{name: "invalid request is fatal", errType: "invalid_request_error", wantFatal: true},
		{name: "unknown type is fatal", errType: "mystery", wantFatal: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := openStream(t, sseBody(
				`{"error":{"code":"err_1","type":"`+tt.errType+`","message":"boom"}}`,
			))

			evt, err := s.Next()
			require.NoError(t, err)
			frame, ok := evt.(trickle.EventErrorFrame)
			require.True(t, ok)
			assert.Equal(t, "err_1", frame.Code)
			assert.Equal(t, "boom", frame.Message)
			assert.Equal(t, tt.wantFatal, frame.Fatal)
		})
	}
}

func TestStream_DropWithoutDoneSentinel(t *testing.T) {
	t.Parallel()
	s := openStream(t, sseBody(
		`{"choices":[{"delta":{"content":"cut"},"finish_reason":null}]}`,
	))

	events, err := drain(t, s)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 1)
	assert.Equal(t, trickle.EventData{Fragment: "cut"}, events[0])
	assert.Equal(t, trickle.StreamStateError, s.State())

	// The terminal error is sticky.
	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_SkipsNonDataLines(t *testing.T) {
	t.Parallel()
	body := ": keep-alive comment\n\n" +
		"event: chunk\n" +
		sseBody(
			`{"choices":[]}`,
			`{"choices":[{"delta":{"content":"x"},"finish_reason":"stop"}]}`,
			`[DONE]`,
		)
	s := openStream(t, body)

	events, err := drain(t, s)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 2)
	assert.Equal(t, trickle.EventData{Fragment: "x"}, events[0])
}

func TestStream_NextAfterClose(t *testing.T) {
	t.Parallel()
	s := openStream(t, sseBody(`[DONE]`))
	require.NoError(t, s.Close())

	_, err := s.Next()
	assert.ErrorIs(t, err, trickle.ErrStreamClosed)
	assert.Equal(t, trickle.StreamStateClosed, s.State())
}

func TestStream_StateProgression(t *testing.T) {
	t.Parallel()
	s := openStream(t, sseBody(
		`{"choices":[{"delta":{"content":"a"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	))
	assert.Equal(t, trickle.StreamStateNew, s.State())

	_, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, trickle.StreamStateStreaming, s.State())

	_, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, trickle.StreamStateComplete, s.State())
}
