package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/lplsense/framework/index"
)

// Run starts the browser over an index manager. The workspace is indexed
// in the background once the program starts.
func Run(ctx context.Context, manager *index.IndexManager, deep bool) error {
	if manager == nil {
		return errors.New("index manager is required")
	}
	model := NewModel(ctx, manager, deep)
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

// Model is the Bubble Tea model of the class browser.
type Model struct {
	ctx     context.Context
	manager *index.IndexManager
	deep    bool

	feed    viewport.Model
	input   textinput.Model
	spinner spinner.Model

	statusBar StatusBar

	// content is the unwrapped text shown in the feed.
	content string
	history []string

	width   int
	height  int
	ready   bool
	loading bool
}

// indexDoneMsg reports the end of the background workspace pass.
type indexDoneMsg struct {
	result *index.WorkspaceResult
	err    error
}

// NewModel builds the browser model.
func NewModel(ctx context.Context, manager *index.IndexManager, deep bool) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	input := textinput.New()
	input.Placeholder = "Class name or /help"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		ctx:       ctx,
		manager:   manager,
		deep:      deep,
		feed:      viewport.New(0, 0),
		input:     input,
		spinner:   sp,
		statusBar: StatusBar{workspace: manager.Workspace(), started: time.Now()},
		content:   welcomeStyle.Render("Indexing workspace. Type a class name or /help."),
		loading:   true,
	}
}

// Content returns the text currently shown in the feed.
func (m Model) Content() string {
	return m.content
}

func (m Model) indexWorkspace() tea.Cmd {
	return func() tea.Msg {
		res, err := m.manager.IndexWorkspace(m.ctx)
		return indexDoneMsg{result: res, err: err}
	}
}
