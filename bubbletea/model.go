package bubbletea

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pwalus/trickle"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the trickle TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	run        RunFunc
	newRequest RequestFunc
	theme      trickle.Theme
	styles     Styles

	messages   []trickle.Message
	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// Blocks for the in-flight turn. Snapshots carry whole accumulated
	// streams, so these are replaced in place rather than appended to.
	curThinking *ThinkingBlock
	curAnswer   *AnswerBlock

	running  bool
	progress string
	cancel   context.CancelFunc
	eventCh  chan tea.Msg
	doneCh   chan trickle.Outcome
	err      error
	ready    bool
}

// New creates a new TUI Model with the given run pipeline, request
// builder, and theme.
func New(run RunFunc, newRequest RequestFunc, theme trickle.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		run:        run,
		newRequest: newRequest,
		theme:      theme,
		styles:     NewStyles(theme),
		blockFocus: -1,
	}
}

// Running returns whether a request is currently streaming.
func (m Model) Running() bool { return m.running }

// Err returns the last terminal failure, if any.
func (m Model) Err() error { return m.err }

// SetRunning is a test helper that puts the model in a running state.
func SetRunning(m Model) (Model, tea.Cmd) {
	m.running = true
	return m, nil
}

// SetRunningWithCancel is a test helper that puts the model in a running
// state with a cancel function.
func SetRunningWithCancel(m Model, cancel func()) (Model, tea.Cmd) {
	m.running = true
	m.cancel = cancel
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m = m.applySnapshot(msg.Snapshot)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case ProgressMsg:
		m.progress = progressText(msg)
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case DoneMsg:
		m = m.handleDone(msg.Outcome)
		cmd := m.Input.Focus()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Output area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	// When idle, pass keys to both input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.progress = ""

	m.messages = append(m.messages, trickle.Message{Role: trickle.RoleUser, Content: text})
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m.curThinking = nil
	m.curAnswer = nil
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	req := m.newRequest(m.messages)

	// Set up channels and context for the streaming run.
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan tea.Msg, 256)
	m.doneCh = make(chan trickle.Outcome, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startRequest(m.run, ctx, req, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

// applySnapshot routes the latest accumulated streams into the current
// turn's blocks, creating them on first content.
func (m Model) applySnapshot(snap trickle.Snapshot) Model {
	if snap.Thinking != "" {
		if m.curThinking == nil {
			m.curThinking = NewThinkingBlock(m.styles)
			m.blocks = append(m.blocks, m.curThinking)
		}
		m.curThinking.Set(snap.Thinking)
		m.curThinking.SetTruncated(snap.Truncated)
	}
	if snap.Main != "" {
		if m.curAnswer == nil {
			m.curAnswer = NewAnswerBlock()
			m.blocks = append(m.blocks, m.curAnswer)
		}
		m.curAnswer.Set(snap.Main)
	}
	return m
}

func (m Model) handleDone(out trickle.Outcome) Model {
	m.running = false
	m.progress = ""
	m.cancel = nil
	m.eventCh = nil
	m.doneCh = nil

	switch {
	case out.Completed():
		if m.curAnswer != nil {
			m.messages = append(m.messages, trickle.Message{
				Role:    trickle.RoleAssistant,
				Content: m.curAnswer.Text(),
			})
		}
	case out.Status == trickle.StatusFailed:
		m.err = out.Err
		partial := m.curAnswer != nil && m.curAnswer.Text() != ""
		m.blocks = append(m.blocks, NewErrorBlock(out.Err, partial, m.styles))
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
	}

	m.curThinking = nil
	m.curAnswer = nil
	return m.updateBlockFocus()
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the
// previous collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if _, ok := m.blocks[i].(*ThinkingBlock); ok {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if _, ok := m.blocks[idx].(*ThinkingBlock); ok {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.progress != "" {
		return m.styles.Muted.Render(m.progress)
	}
	if m.running {
		return m.styles.Muted.Render("Streaming... (Ctrl+C to stop)")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}

func progressText(msg ProgressMsg) string {
	switch msg.Progress {
	case trickle.ProgressWaitingOnline:
		return "Offline - waiting for network..."
	case trickle.ProgressRetrying:
		return fmt.Sprintf("Connection lost - retrying (attempt %d)...", msg.Attempt+1)
	}
	return ""
}

// startRequest runs the streaming pipeline in a goroutine and signals
// completion.
func startRequest(run RunFunc, ctx context.Context, req trickle.Request, eventCh chan<- tea.Msg, doneCh chan<- trickle.Outcome) tea.Cmd {
	return func() tea.Msg {
		out := run(ctx, req,
			func(s trickle.Snapshot) {
				select {
				case eventCh <- SnapshotMsg{Snapshot: s}:
				case <-ctx.Done():
				}
			},
			func(p trickle.Progress, attempt int) {
				select {
				case eventCh <- ProgressMsg{Progress: p, Attempt: attempt}:
				case <-ctx.Done():
				}
			},
		)
		close(eventCh)
		doneCh <- out
		return nil
	}
}

// listenForEvent waits for the next message from the channel. When the
// channel closes, it reads the outcome from doneCh and returns DoneMsg.
func listenForEvent(ch <-chan tea.Msg, doneCh <-chan trickle.Outcome) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return DoneMsg{Outcome: <-doneCh}
		}
		return msg
	}
}
