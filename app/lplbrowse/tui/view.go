package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// View composes the header, feed, prompt bar and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	header := headerStyle.Render("lplsense browser")
	if m.loading {
		header += " " + m.spinner.View() + dimStyle.Render(" indexing")
	}
	prompt := promptBarStyle.Width(m.width).Render("> " + m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, m.feed.View(), prompt, m.statusBar.View(m.width))
}
