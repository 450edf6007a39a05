package trickle_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pwalus/trickle"
	"github.com/pwalus/trickle/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFinalizerHarness(store trickle.Store, logger *slog.Logger) (*trickle.Finalizer, *mock.Presenter) {
	presenter := &mock.Presenter{}
	scheduler := trickle.NewScheduler(presenter, time.Millisecond)
	return trickle.NewFinalizer(store, scheduler, logger), presenter
}

func TestFinalizer_PersistsCompletedResponse(t *testing.T) {
	t.Parallel()
	var saved []trickle.Record
	store := &mock.Store{
		SaveFn: func(ctx context.Context, rec trickle.Record) error {
			saved = append(saved, rec)
			return nil
		},
	}
	f, presenter := newFinalizerHarness(store, nil)

	buffers := trickle.NewBuffers()
	buffers.Ingest("<think>why</think>because")
	buffers.FlushResidue()

	out := trickle.Outcome{
		Status:       trickle.StatusCompleted,
		Model:        "test-model",
		FinishReason: trickle.FinishStop,
	}
	f.Finalize(context.Background(), testRequest(), out, buffers)

	require.Len(t, saved, 1)
	rec := saved[0]
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, trickle.RoleAssistant, rec.Role)
	assert.Equal(t, "because", rec.Text)
	assert.Equal(t, "why", rec.Thinking)
	assert.True(t, rec.Complete)
	assert.False(t, rec.Truncated)
	assert.Equal(t, "test-model", rec.Model)
	assert.Equal(t, trickle.FinishStop, rec.FinishReason)
	assert.False(t, rec.CreatedAt.IsZero())

	// Finalize issues the final render with the persisted content.
	snaps := presenter.Snapshots()
	require.NotEmpty(t, snaps)
	assert.Equal(t, "because", snaps[len(snaps)-1].Main)
}

func TestFinalizer_Idempotent(t *testing.T) {
	t.Parallel()
	saves := 0
	store := &mock.Store{
		SaveFn: func(ctx context.Context, rec trickle.Record) error {
			saves++
			return nil
		},
	}
	f, presenter := newFinalizerHarness(store, nil)

	buffers := trickle.NewBuffers()
	buffers.Ingest("answer")
	out := trickle.Outcome{Status: trickle.StatusCompleted}

	f.Finalize(context.Background(), testRequest(), out, buffers)
	f.Finalize(context.Background(), testRequest(), out, buffers)

	assert.Equal(t, 1, saves)
	assert.Len(t, presenter.Snapshots(), 1)
}

func TestFinalizer_KeepsPartialContentOnFailure(t *testing.T) {
	t.Parallel()
	var saved []trickle.Record
	store := &mock.Store{
		SaveFn: func(ctx context.Context, rec trickle.Record) error {
			saved = append(saved, rec)
			return nil
		},
	}
	f, _ := newFinalizerHarness(store, nil)

	buffers := trickle.NewBuffers()
	buffers.Ingest("partial answer")
	out := trickle.Outcome{Status: trickle.StatusFailed, Reason: trickle.ReasonNetwork}

	f.Finalize(context.Background(), testRequest(), out, buffers)

	require.Len(t, saved, 1)
	assert.Equal(t, "partial answer", saved[0].Text)
	assert.False(t, saved[0].Complete)
}

func TestFinalizer_SkipsEmptyIncompleteResponse(t *testing.T) {
	t.Parallel()
	store := &mock.Store{
		SaveFn: func(ctx context.Context, rec trickle.Record) error {
			t.Error("unexpected Save call")
			return nil
		},
	}
	f, presenter := newFinalizerHarness(store, nil)

	out := trickle.Outcome{Status: trickle.StatusAborted, Err: context.Canceled}
	f.Finalize(context.Background(), testRequest(), out, trickle.NewBuffers())

	// The final render still happens even when nothing is persisted.
	assert.Len(t, presenter.Snapshots(), 1)
}

func TestFinalizer_LogsStoreFailure(t *testing.T) {
	t.Parallel()
	store := &mock.Store{
		SaveFn: func(ctx context.Context, rec trickle.Record) error {
			return errors.New("disk full")
		},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	f, _ := newFinalizerHarness(store, logger)

	buffers := trickle.NewBuffers()
	buffers.Ingest("answer")
	out := trickle.Outcome{Status: trickle.StatusCompleted}

	// Persistence failures are logged, never propagated.
	f.Finalize(context.Background(), testRequest(), out, buffers)

	log := buf.String()
	assert.Contains(t, log, "persist response")
	assert.Contains(t, log, "req-1")
	assert.Contains(t, log, "disk full")
}
