package trickle

import "context"

// Transport is a strategy pattern interface for streaming response
// sources. Open issues the request and returns a Stream of events.
// Wire framing is the transport's concern; the core only sees the
// sealed Event variants and Next()'s error return.
type Transport interface {
	Open(ctx context.Context, req Request) (Stream, error)
}
