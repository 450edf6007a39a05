package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pwalus/trickle"
	bt "github.com/pwalus/trickle/bubbletea"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, run bt.RunFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, run, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, run bt.RunFunc, width, height int) bt.Model {
	t.Helper()
	m := bt.New(run, testRequestBuilder, trickle.DefaultTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func testRequestBuilder(messages []trickle.Message) trickle.Request {
	return trickle.Request{ID: "req-1", Model: "test-model", Messages: messages}
}

// nopRun is a run pipeline that completes immediately with no output.
func nopRun(_ context.Context, _ trickle.Request, _ func(trickle.Snapshot), _ func(trickle.Progress, int)) trickle.Outcome {
	return trickle.Outcome{Status: trickle.StatusCompleted}
}
