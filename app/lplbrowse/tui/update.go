package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Init fulfills the Bubble Tea Model interface.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.indexWorkspace())
}

// Update applies incoming Bubble Tea messages to the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case indexDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.statusBar.err = msg.err.Error()
		}
		if msg.result != nil {
			m.statusBar.files = msg.result.Indexed
			m.statusBar.failed = len(msg.result.Failed)
		}
		m.statusBar.classes = len(m.manager.Registry().ClassNames())
		return m.setContent(renderClassList(m.manager.Registry(), "")), nil
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	feedHeight := max(1, msg.Height-3)
	if !m.ready {
		m.feed = viewport.New(msg.Width, feedHeight)
		m.ready = true
	} else {
		m.feed.Width = msg.Width
		m.feed.Height = feedHeight
	}
	m.input.Width = max(10, msg.Width-4)
	m.feed.SetContent(m.content)
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		return m, tea.Quit
	case "enter":
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if line == "" {
			return m, nil
		}
		m.history = append(m.history, line)
		return m.run(line)
	case "esc":
		m.input.SetValue("")
		return m, nil
	case "up", "down", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run dispatches a prompt line. Lines without a slash show a class.
func (m Model) run(line string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(line, "/") {
		return handleClass(m, []string{line})
	}
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return m, nil
	}
	command, ok := lookupCommand(fields[0])
	if !ok {
		return m.setContent(errorStyle.Render("unknown command /" + fields[0] + "; try /help")), nil
	}
	return command.Handler(m, fields[1:])
}

func (m Model) setContent(content string) Model {
	m.content = content
	if m.ready {
		m.feed.SetContent(content)
		m.feed.GotoTop()
	}
	return m
}
