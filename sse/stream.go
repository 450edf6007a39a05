package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pwalus/trickle"
)

// Interface compliance check.
var _ trickle.Stream = (*stream)(nil)

// stream implements [trickle.Stream] by parsing SSE data frames from an
// HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   trickle.StreamState
	err     error // terminal error, if any

	// Completion metadata accumulated across chunks and emitted with
	// the done sentinel.
	model        string
	finishReason trickle.FinishReason
	usage        trickle.Usage
}

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, initialFrameBufSize), maxFrameSize)
	return &stream{
		body:         body,
		scanner:      scanner,
		ctx:          ctx,
		state:        trickle.StreamStateNew,
		finishReason: trickle.FinishUnknown,
	}
}

// Next reads the next semantic event from the SSE stream.
// Returns io.EOF after the stream completes normally.
func (s *stream) Next() (trickle.Event, error) {
	switch s.state {
	case trickle.StreamStateComplete:
		return nil, io.EOF
	case trickle.StreamStateError:
		return nil, s.err
	case trickle.StreamStateClosed:
		return nil, trickle.ErrStreamClosed
	}

	for {
		data, err := s.readFrame()
		if err != nil {
			s.state = trickle.StreamStateError
			s.err = err
			return nil, s.err
		}

		s.state = trickle.StreamStateStreaming

		if data == doneSentinel {
			s.state = trickle.StreamStateComplete
			return trickle.EventCompletion{
				Model:        s.model,
				FinishReason: s.finishReason,
				Usage:        s.usage,
			}, nil
		}

		evt := s.processChunk(data)
		if evt != nil {
			return evt, nil
		}
		// Keep-alive or metadata-only chunk - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() trickle.StreamState {
	return s.state
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != trickle.StreamStateComplete && s.state != trickle.StreamStateError {
		s.state = trickle.StreamStateClosed
	}
	return s.body.Close()
}

// readFrame reads lines until the next data payload. Comment lines and
// blank event separators are skipped.
func (s *stream) readFrame() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if strings.HasPrefix(line, dataPrefix) {
			return strings.TrimPrefix(line, dataPrefix), nil
		}
	}

	if err := s.scanner.Err(); err != nil {
		if s.ctx.Err() != nil {
			return "", s.ctx.Err()
		}
		return "", &trickle.TransportError{Reason: trickle.ReasonNetwork, Err: fmt.Errorf("sse: %w", err)}
	}

	// Scanner exhausted without the done sentinel: the connection
	// dropped mid-stream.
	return "", io.EOF
}

// processChunk maps one data payload to a semantic event. Returns nil
// for chunks carrying neither content nor an error.
func (s *stream) processChunk(data string) trickle.Event {
	var chunk apiChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return trickle.EventMalformed{Cause: fmt.Sprintf("invalid frame JSON: %v", err)}
	}

	if chunk.Error != nil {
		return trickle.EventErrorFrame{
			Code:    chunk.Error.Code,
			Message: chunk.Error.Message,
			Fatal:   fatalErrorType(chunk.Error.Type),
		}
	}

	if chunk.Model != "" {
		s.model = chunk.Model
	}
	if chunk.Usage != nil {
		s.usage = trickle.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return nil
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		s.finishReason = mapFinishReason(*choice.FinishReason)
	}
	if choice.Delta.Content == "" {
		return nil
	}
	return trickle.EventData{Fragment: choice.Delta.Content}
}
