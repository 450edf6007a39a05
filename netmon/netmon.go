// Package netmon implements [trickle.NetworkMonitor] with a TCP dial
// probe. It answers one question cheaply: can this device reach the
// network right now?
package netmon

import (
	"context"
	"net"
	"time"

	"github.com/pwalus/trickle"
)

// Interface compliance check.
var _ trickle.NetworkMonitor = (*Monitor)(nil)

const (
	defaultProbeAddr    = "1.1.1.1:443"
	defaultProbeTimeout = 2 * time.Second
	defaultPollInterval = 3 * time.Second
)

// DialFunc opens a connection for one probe.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Monitor probes a well-known endpoint to report connectivity. A probe
// answering at the TCP level is taken as online; name-resolution and
// connection-refused failures are taken as offline.
type Monitor struct {
	addr     string
	timeout  time.Duration
	interval time.Duration
	dial     DialFunc
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithProbeAddress sets the host:port dialed by each probe.
func WithProbeAddress(addr string) Option {
	return func(m *Monitor) { m.addr = addr }
}

// WithProbeTimeout bounds a single probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithPollInterval sets how often WaitOnline re-probes.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithDialFunc sets a custom dial function. Useful for testing.
func WithDialFunc(dial DialFunc) Option {
	return func(m *Monitor) { m.dial = dial }
}

// New creates a Monitor with the given options.
func New(opts ...Option) *Monitor {
	dialer := &net.Dialer{}
	m := &Monitor{
		addr:     defaultProbeAddr,
		timeout:  defaultProbeTimeout,
		interval: defaultPollInterval,
		dial:     dialer.DialContext,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Online reports whether a single probe succeeds.
func (m *Monitor) Online() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	conn, err := m.dial(ctx, "tcp", m.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WaitOnline blocks until a probe succeeds or ctx is done.
func (m *Monitor) WaitOnline(ctx context.Context) error {
	if m.Online() {
		return nil
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Online() {
				return nil
			}
		}
	}
}
