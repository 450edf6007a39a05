package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pwalus/trickle"
)

// Interface compliance check.
var _ trickle.Transport = (*Client)(nil)

// Client implements [trickle.Transport] for OpenAI-compatible
// chat-completion services.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open sends a streaming completion request and returns a
// [trickle.Stream] over the response frames.
func (c *Client) Open(ctx context.Context, req trickle.Request) (trickle.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}

	body, err := json.Marshal(buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &trickle.TransportError{Reason: trickle.ReasonNetwork, Err: fmt.Errorf("sse: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

func buildRequestBody(req trickle.Request) apiRequest {
	msgs := make([]apiMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = apiMessage{Role: string(m.Role), Content: m.Content}
	}
	return apiRequest{
		Model:         req.Model,
		Messages:      msgs,
		Stream:        true,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		StreamOptions: &apiStreamOptions{IncludeUsage: true},
	}
}

// parseHTTPError maps a non-200 response to a tagged transport error.
// Overload and rate-limit statuses are transient; other client errors
// would fail identically on retry.
func parseHTTPError(resp *http.Response) error {
	reason := trickle.ReasonServerFatal
	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout:
		reason = trickle.ReasonServer
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &trickle.TransportError{
			Reason: reason,
			Err:    fmt.Errorf("sse: HTTP %d (failed to read body: %w)", resp.StatusCode, err),
		}
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return &trickle.TransportError{
			Reason: reason,
			Err:    fmt.Errorf("sse: HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}
	return &trickle.TransportError{
		Reason: reason,
		Err:    fmt.Errorf("sse: %s: %s", apiErr.Error.Type, apiErr.Error.Message),
	}
}
