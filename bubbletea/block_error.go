package bubbletea

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a terminal failure beneath whatever partial
// content was already streamed.
type ErrorBlock struct {
	err     error
	partial bool
	styles  Styles
}

// NewErrorBlock creates an ErrorBlock. partial notes that streamed text
// above the error was kept.
func NewErrorBlock(err error, partial bool, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, partial: partial, styles: styles}
}

func (b *ErrorBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	text := fmt.Sprintf("Error: %v", b.err)
	if b.partial {
		text += " (partial response kept)"
	}
	content := b.styles.Error.Render(text)
	return lipgloss.NewStyle().Width(width).Render(content)
}
