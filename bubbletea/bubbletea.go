// Package bubbletea provides a Bubble Tea TUI for trickle streaming.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pwalus/trickle"
)

// RunFunc executes one logical request end to end: streaming, retries,
// and finalization. onSnapshot delivers each scheduled render state;
// onProgress delivers retry status. The function blocks until the
// request resolves or the context is cancelled.
type RunFunc func(ctx context.Context, req trickle.Request, onSnapshot func(trickle.Snapshot), onProgress func(trickle.Progress, int)) trickle.Outcome

// RequestFunc builds the next request from the conversation so far.
// The last message is the user's new prompt.
type RequestFunc func(messages []trickle.Message) trickle.Request

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. Cancelling the context quits the program, which is how
// OS signals shut the app down.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SnapshotMsg delivers a scheduled render state to the Bubble Tea model.
type SnapshotMsg struct {
	Snapshot trickle.Snapshot
}

// ProgressMsg delivers retry status for the in-flight request.
type ProgressMsg struct {
	Progress trickle.Progress
	Attempt  int
}

// DoneMsg signals that the in-flight request has resolved.
type DoneMsg struct {
	Outcome trickle.Outcome
}
