package trickle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Record is one persisted response.
type Record struct {
	RequestID    string
	Role         Role
	Text         string
	Thinking     string // reasoning trace, empty when none
	Complete     bool
	Truncated    bool
	Model        string
	FinishReason FinishReason
	CreatedAt    time.Time
}

// Store durably persists finalized responses. At-least-once delivery is
// acceptable; implementations should make Save idempotent per RequestID.
type Store interface {
	Save(ctx context.Context, rec Record) error
}

// Finalizer performs the single post-terminal action for one logical
// request: one forced render and at most one persistence pass, however
// many retry attempts ran before it. Duplicate Finalize calls are no-ops.
type Finalizer struct {
	store     Store
	scheduler *Scheduler
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	done bool
}

// NewFinalizer creates a Finalizer for one logical request. A nil
// logger falls back to slog.Default().
func NewFinalizer(store Store, scheduler *Scheduler, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Finalize renders the final buffer state and persists it. A completed
// outcome stores the full answer plus any reasoning trace; a failed or
// aborted outcome with partial content stores that content annotated as
// incomplete, so nothing the user saw is silently lost. Persistence
// failures are logged, never propagated: the stream is already over and
// the store applies its own retry policy.
func (f *Finalizer) Finalize(ctx context.Context, req Request, out Outcome, buffers *Buffers) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.mu.Unlock()

	snap := buffers.Snapshot()
	f.scheduler.ForceRender(snap)

	if !out.Completed() && snap.Main == "" {
		return // nothing user-visible to keep
	}

	rec := Record{
		RequestID:    req.ID,
		Role:         RoleAssistant,
		Text:         snap.Main,
		Thinking:     snap.Thinking,
		Complete:     out.Completed(),
		Truncated:    snap.Truncated,
		Model:        out.Model,
		FinishReason: out.FinishReason,
		CreatedAt:    f.now(),
	}
	if err := f.store.Save(ctx, rec); err != nil {
		f.logger.Error("persist response",
			"request_id", req.ID,
			"complete", rec.Complete,
			"error", err)
	}
}
