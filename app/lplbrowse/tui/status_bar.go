package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar shows the workspace and index counters.
type StatusBar struct {
	workspace string
	files     int
	failed    int
	classes   int
	err       string
	started   time.Time
}

func (s StatusBar) View(width int) string {
	left := fmt.Sprintf("%s | files %d | classes %d", truncate(s.workspace, 30), s.files, s.classes)
	if s.failed > 0 {
		left += fmt.Sprintf(" | failed %d", s.failed)
	}
	if s.err != "" {
		left += " | " + s.err
	}
	right := time.Since(s.started).Truncate(time.Second).String()
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return statusStyle.Render(left + strings.Repeat(" ", padding) + right)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:1]
	}
	return "…" + s[len(s)-n+1:]
}
