package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/lplsense/framework/index"
)

const fooClass = `Foo is a BusinessClass
    Persistent Fields
        name is Alpha 30
    Actions
        Approve is an Action
            restricted
        Edit is an Action
    Ui
        MainList is a List
            Actions
                Approve
                Edit is disabled`

func newTestModel(t *testing.T) Model {
	t.Helper()
	manager := index.NewIndexManager(nil, nil, index.IndexConfig{WorkspacePath: t.TempDir()}, nil)
	_, err := manager.IndexContent(context.Background(), "Foo.busclass", fooClass)
	require.NoError(t, err)
	m := NewModel(context.Background(), manager, false)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestIndexDoneListsClasses(t *testing.T) {
	m := newTestModel(t)
	require.True(t, m.loading)
	next, _ := m.Update(indexDoneMsg{result: &index.WorkspaceResult{Indexed: 1}})
	m = next.(Model)
	require.False(t, m.loading)
	require.Contains(t, m.Content(), "Foo")
	require.Equal(t, 1, m.statusBar.classes)
}

func TestBareNameShowsClass(t *testing.T) {
	m := submit(t, newTestModel(t), "Foo")
	require.Contains(t, m.Content(), "name")
	require.Contains(t, m.Content(), "Approve")
	require.Contains(t, m.Content(), "MainList")
	require.Equal(t, []string{"Foo"}, m.history)
	require.Empty(t, m.input.Value())
}

func TestReportCommand(t *testing.T) {
	m := submit(t, newTestModel(t), "/report Foo")
	require.Contains(t, m.Content(), "Foo restrictions")
	require.Contains(t, m.Content(), "Approve")

	m = submit(t, m, "/report Nope")
	require.Contains(t, m.Content(), "not indexed")
}

func TestSymbolsWithoutStore(t *testing.T) {
	m := submit(t, newTestModel(t), "/symbols Fo%")
	require.Contains(t, m.Content(), "no index database")
}

func TestUnknownCommandAndQuit(t *testing.T) {
	m := submit(t, newTestModel(t), "/bogus")
	require.Contains(t, m.Content(), "unknown command")

	m.input.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestValidateWithoutProblems(t *testing.T) {
	m := submit(t, newTestModel(t), "/validate")
	require.Contains(t, m.Content(), "no problems found")
}
