package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*ThinkingBlock)(nil)

// ThinkingBlock renders the reasoning trace with a collapsible toggle.
type ThinkingBlock struct {
	text      string
	collapsed bool
	truncated bool
	styles    Styles
}

// NewThinkingBlock creates a ThinkingBlock that starts collapsed.
func NewThinkingBlock(styles Styles) *ThinkingBlock {
	return &ThinkingBlock{collapsed: true, styles: styles}
}

// Set replaces the block content with the latest snapshot trace.
func (b *ThinkingBlock) Set(text string) {
	b.text = text
}

// SetTruncated marks the trace as cut off before its end marker.
func (b *ThinkingBlock) SetTruncated(truncated bool) {
	b.truncated = truncated
}

func (b *ThinkingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ThinkingBlock) View(width int) string {
	wrap := lipgloss.NewStyle().Width(width)

	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	title := indicator + " Thinking"
	if b.truncated {
		title += " (truncated)"
	}
	header := b.styles.Thinking.Render(wrap.Render(title))
	if b.collapsed {
		return header
	}
	content := b.styles.Thinking.Render(wrap.Render(b.text))
	return header + "\n" + content
}
