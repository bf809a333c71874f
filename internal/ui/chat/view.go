package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	chatmodel "github.com/zhouzirui/arix-mart/backend/internal/model/chat"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2E7D32")).
			Padding(0, 1)

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E88E5"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43A047"))
	clockStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#9E9E9E"))
	userTextStyle       = lipgloss.NewStyle().PaddingLeft(2)
	thinkingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FB8C00"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#757575"))
)

const thinkingText = "Arix AI is thinking"

// View renders the window.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + thinkingStyle.Render(thinkingText+"..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • alt+enter newline • ctrl+l clear • ctrl+c quit"))
	return b.String()
}

func (m Model) renderTranscript() string {
	parts := make([]string, 0, len(m.turns))
	for _, turn := range m.turns {
		parts = append(parts, m.renderTurn(turn))
	}
	return strings.Join(parts, "\n")
}

func (m Model) renderTurn(turn chatmodel.Turn) string {
	if turn.IsUser() {
		header := userLabelStyle.Render("You") + " " + clockStyle.Render(turn.Clock())
		body := userTextStyle.Width(max(m.width-2, 10)).Render(turn.Text)
		return header + "\n" + body + "\n"
	}

	header := assistantLabelStyle.Render("Arix AI") + " " + clockStyle.Render(turn.Clock())
	return header + "\n" + m.renderMarkdown(turn.Text)
}

func (m Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return userTextStyle.Render(text) + "\n"
	}
	out, err := m.markdown.Render(text)
	if err != nil {
		return userTextStyle.Render(text) + "\n"
	}
	return out
}
