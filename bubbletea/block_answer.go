package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*AnswerBlock)(nil)

// AnswerBlock renders the streamed answer text. Snapshots carry the
// whole accumulated answer, so Set replaces rather than appends; a
// throttled renderer may skip intermediate states without losing text.
type AnswerBlock struct {
	text string
}

// NewAnswerBlock creates a new block for streaming answer text.
func NewAnswerBlock() *AnswerBlock {
	return &AnswerBlock{}
}

// Set replaces the block content with the latest snapshot text.
func (b *AnswerBlock) Set(text string) {
	b.text = text
}

// Text returns the current answer text.
func (b *AnswerBlock) Text() string {
	return b.text
}

func (b *AnswerBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AnswerBlock) View(width int) string {
	if b.text == "" {
		return ""
	}
	return lipgloss.NewStyle().Width(width).Render(b.text)
}
