package trickle

import (
	"context"
	"math/rand/v2"
	"time"
)

// DefaultMaxAttempts is the total session attempts per logical request.
const DefaultMaxAttempts = 3

// BackoffPolicy returns the wait before the next attempt, given the
// 1-based number of the attempt that just failed.
type BackoffPolicy func(attempt int) time.Duration

// ExponentialBackoff returns a policy that doubles from base, caps at
// max, and jitters over the upper half of the window.
func ExponentialBackoff(base, max time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < max; i++ {
			d *= 2
		}
		if d > max {
			d = max
		}
		if d <= 0 {
			return 0
		}
		half := d / 2
		return half + rand.N(d-half+1)
	}
}

// NetworkMonitor reports device connectivity. Online should be cheap to
// poll; WaitOnline blocks until the device is online or ctx is done.
type NetworkMonitor interface {
	Online() bool
	WaitOnline(ctx context.Context) error
}

// Progress is the coarse retry status surfaced to the user. Retries are
// otherwise silent: previously streamed text stays on screen.
type Progress string

const (
	ProgressRetrying      Progress = "retrying"
	ProgressWaitingOnline Progress = "waiting_online"
)

// RetrierConfig bounds the retry loop around sessions.
type RetrierConfig struct {
	MaxAttempts int           // total attempts; 0 = DefaultMaxAttempts
	Backoff     BackoffPolicy // nil = ExponentialBackoff(500ms, 8s)
	Session     SessionConfig
	OnProgress  func(p Progress, attempt int) // optional status callback
}

// Retrier wraps sessions in a bounded-attempt, backoff-governed retry
// loop. It is aware of offline transitions (waiting for online consumes
// no attempt budget) and of user cancellation (terminal, never retried).
type Retrier struct {
	transport Transport
	scheduler *Scheduler
	network   NetworkMonitor // nil = assume always online
	cfg       RetrierConfig
}

// NewRetrier creates a Retrier. network may be nil when connectivity
// tracking is unavailable; the retry loop then assumes online.
func NewRetrier(transport Transport, scheduler *Scheduler, network NetworkMonitor, cfg RetrierConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff(500*time.Millisecond, 8*time.Second)
	}
	return &Retrier{
		transport: transport,
		scheduler: scheduler,
		network:   network,
		cfg:       cfg,
	}
}

// Execute runs session attempts against the same logical request until
// one resolves terminally, and returns exactly one Outcome. The buffers
// accumulate across attempts: a retry re-issues the identical request
// and appends newly produced content, so text already rendered is never
// erased or duplicated.
func (r *Retrier) Execute(ctx context.Context, req Request, buffers *Buffers) Outcome {
	for attempt := 1; ; attempt++ {
		if err := r.waitOnline(ctx, attempt); err != nil {
			return Outcome{Status: StatusAborted, Err: err, Truncated: buffers.Snapshot().Truncated}
		}

		sess := NewSession(r.transport, buffers, r.scheduler, r.cfg.Session)
		out := sess.Run(ctx, req)

		if out.Status != StatusFailed {
			return out // Completed or Aborted: never retried
		}
		if !out.Reason.Recoverable() || attempt >= r.cfg.MaxAttempts {
			return out
		}

		r.notify(ProgressRetrying, attempt)
		if err := r.sleep(ctx, r.cfg.Backoff(attempt)); err != nil {
			return Outcome{Status: StatusAborted, Err: err, Truncated: out.Truncated}
		}
	}
}

// waitOnline blocks while the device is offline. Time spent waiting
// consumes no attempt budget.
func (r *Retrier) waitOnline(ctx context.Context, attempt int) error {
	if r.network == nil || r.network.Online() {
		return ctx.Err()
	}
	r.notify(ProgressWaitingOnline, attempt)
	return r.network.WaitOnline(ctx)
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Retrier) notify(p Progress, attempt int) {
	if r.cfg.OnProgress != nil {
		r.cfg.OnProgress(p, attempt)
	}
}
