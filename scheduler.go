package trickle

import (
	"sync"
	"time"
)

// DefaultRenderInterval is the minimum spacing between throttled renders.
const DefaultRenderInterval = 50 * time.Millisecond

// Presenter accepts render calls. Render may be invoked from the
// scheduler's deferred-timer goroutine; implementations must tolerate
// that.
type Presenter interface {
	Render(s Snapshot)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(s Snapshot)

// Render calls f(s).
func (f PresenterFunc) Render(s Snapshot) { f(s) }

// Clock abstracts time so throttling is testable without real sleeps.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the stoppable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Scheduler coalesces buffer-change notifications into throttled render
// calls. Bursts of fragments within the interval collapse into a single
// deferred render carrying the latest snapshot; renders are delivered in
// snapshot order (stale snapshots are dropped, never rendered late).
type Scheduler struct {
	presenter Presenter
	interval  time.Duration
	clock     Clock

	// mu is held across the Render call itself. Mutation is strictly
	// sequential, so the only contention is the deferred-timer
	// goroutine; serializing renders under the lock is what makes the
	// ordering guarantee hold.
	mu         sync.Mutex
	lastRender time.Time
	lastSeq    uint64
	pending    *Snapshot
	timer      Timer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock sets the clock used for throttling. Intended for tests.
func WithClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// NewScheduler creates a Scheduler that renders through p at most once
// per interval. interval <= 0 means DefaultRenderInterval.
func NewScheduler(p Presenter, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultRenderInterval
	}
	s := &Scheduler{
		presenter: p,
		interval:  interval,
		clock:     systemClock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BufferChanged notifies the scheduler of a buffer mutation. If the
// interval has elapsed since the last render, the snapshot renders
// immediately; otherwise it replaces any pending snapshot and a single
// deferred render is scheduled for the soonest allowed time.
func (s *Scheduler) BufferChanged(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Seq < s.lastSeq {
		return // stale: a newer snapshot already rendered
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.lastRender)
	if elapsed >= s.interval {
		s.stopTimerLocked()
		s.renderLocked(snap, now)
		return
	}

	s.pending = &snap
	if s.timer == nil {
		s.timer = s.clock.AfterFunc(s.interval-elapsed, s.flushPending)
	}
}

// ForceRender bypasses throttling and renders immediately. Used at
// terminal transitions and session reset.
func (s *Scheduler) ForceRender(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.renderLocked(snap, s.clock.Now())
}

// flushPending delivers the deferred render scheduled by BufferChanged.
func (s *Scheduler) flushPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timer = nil
	if s.pending == nil {
		return
	}
	snap := *s.pending
	if snap.Seq < s.lastSeq {
		s.pending = nil
		return
	}
	s.renderLocked(snap, s.clock.Now())
}

func (s *Scheduler) renderLocked(snap Snapshot, now time.Time) {
	s.pending = nil
	s.lastRender = now
	if snap.Seq > s.lastSeq {
		s.lastSeq = snap.Seq
	}
	s.presenter.Render(snap)
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
