// Package sse implements [trickle.Transport] for OpenAI-compatible
// chat-completion endpoints.
//
// It POSTs a streaming request and parses the server-sent-events
// response one frame at a time through the pull-based [trickle.Stream]
// interface. Each well-formed chunk becomes a semantic event; frames
// that fail to parse surface as [trickle.EventMalformed] so the caller
// decides how much garbage to tolerate.
package sse

import "github.com/pwalus/trickle"

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	completionsPath     = "/chat/completions"
	doneSentinel        = "[DONE]"
	dataPrefix          = "data: "
	maxFrameSize        = 1024 * 1024
	initialFrameBufSize = 64 * 1024
)

// apiRequest is the JSON body sent to the completions endpoint.
type apiRequest struct {
	Model         string            `json:"model"`
	Messages      []apiMessage      `json:"messages"`
	Stream        bool              `json:"stream"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	StreamOptions *apiStreamOptions `json:"stream_options,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiStreamOptions requests a final usage chunk before the done sentinel.
type apiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// apiChunk is one streamed completion frame. Error is populated instead
// of Choices when the service reports a mid-stream failure.
type apiChunk struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
	Error   *apiError   `json:"error"`
}

type apiChoice struct {
	Delta        apiDelta `json:"delta"`
	FinishReason *string  `json:"finish_reason"`
}

type apiDelta struct {
	Content string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// apiErrorResponse is the JSON body returned on non-200 HTTP responses.
type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// fatalErrorType reports whether a mid-stream error type is permanent.
// Transient service conditions are worth another attempt; everything
// else reflects the request itself and will fail identically on retry.
func fatalErrorType(t string) bool {
	switch t {
	case "server_error", "overloaded_error", "rate_limit_error", "timeout_error":
		return false
	}
	return true
}

func mapFinishReason(raw string) trickle.FinishReason {
	switch raw {
	case "stop":
		return trickle.FinishStop
	case "length":
		return trickle.FinishLength
	case "content_filter":
		return trickle.FinishFilter
	default:
		return trickle.FinishUnknown
	}
}
