// Package mock provides test doubles for trickle interfaces using function fields.
package mock

import (
	"context"

	"github.com/pwalus/trickle"
)

// Interface compliance checks.
var (
	_ trickle.Transport      = (*Transport)(nil)
	_ trickle.Stream         = (*Stream)(nil)
	_ trickle.Presenter      = (*Presenter)(nil)
	_ trickle.Store          = (*Store)(nil)
	_ trickle.NetworkMonitor = (*Network)(nil)
	_ trickle.Clock          = (*Clock)(nil)
)

// Transport is a test double for trickle.Transport.
// Set OpenFn before calling Open.
type Transport struct {
	OpenFn func(ctx context.Context, req trickle.Request) (trickle.Stream, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req trickle.Request) (trickle.Stream, error) {
	return t.OpenFn(ctx, req)
}

// Stream is a test double for trickle.Stream.
// NextFn panics when nil to catch missing setup. StateFn and CloseFn
// are nil-safe (zero value and no-op) because test code commonly calls
// defer stream.Close() and these methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (trickle.Event, error)
	StateFn func() trickle.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (trickle.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() trickle.StreamState {
	if s.StateFn == nil {
		return trickle.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Presenter is a test double for trickle.Presenter. When RenderFn is
// nil, Render records the snapshot instead; Snapshots() returns the
// recorded sequence.
type Presenter struct {
	RenderFn func(s trickle.Snapshot)

	recorded []trickle.Snapshot
}

// Render delegates to RenderFn, or records the snapshot when RenderFn is nil.
func (p *Presenter) Render(s trickle.Snapshot) {
	if p.RenderFn != nil {
		p.RenderFn(s)
		return
	}
	p.recorded = append(p.recorded, s)
}

// Snapshots returns the snapshots recorded by Render.
func (p *Presenter) Snapshots() []trickle.Snapshot {
	return p.recorded
}

// Store is a test double for trickle.Store.
// Set SaveFn before calling Save.
type Store struct {
	SaveFn func(ctx context.Context, rec trickle.Record) error
}

// Save delegates to SaveFn.
func (s *Store) Save(ctx context.Context, rec trickle.Record) error {
	return s.SaveFn(ctx, rec)
}

// Network is a test double for trickle.NetworkMonitor. OnlineFn and
// WaitOnlineFn are nil-safe: the zero value reports always online.
type Network struct {
	OnlineFn     func() bool
	WaitOnlineFn func(ctx context.Context) error
}

// Online delegates to OnlineFn. Returns true when OnlineFn is nil.
func (n *Network) Online() bool {
	if n.OnlineFn == nil {
		return true
	}
	return n.OnlineFn()
}

// WaitOnline delegates to WaitOnlineFn. Returns nil when WaitOnlineFn is nil.
func (n *Network) WaitOnline(ctx context.Context) error {
	if n.WaitOnlineFn == nil {
		return nil
	}
	return n.WaitOnlineFn(ctx)
}
