package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/lplsense/framework/index"
)

// CommandHandler mutates model state for /commands in the prompt bar.
type CommandHandler func(Model, []string) (tea.Model, tea.Cmd)

// Command describes a slash command entry.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     CommandHandler
}

var commandRegistry = map[string]Command{}

func init() {
	registerCommand(Command{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help",
		Handler:     handleHelp,
	})
	registerCommand(Command{
		Name:        "classes",
		Aliases:     []string{"ls"},
		Description: "List indexed classes, optionally filtered",
		Usage:       "/classes [filter]",
		Handler:     handleClasses,
	})
	registerCommand(Command{
		Name:        "class",
		Aliases:     []string{"c"},
		Description: "Show the members of a class",
		Usage:       "/class <Name>",
		Handler:     handleClass,
	})
	registerCommand(Command{
		Name:        "report",
		Aliases:     []string{"r"},
		Description: "Show the action restriction report of a class",
		Usage:       "/report <Name>",
		Handler:     handleReport,
	})
	registerCommand(Command{
		Name:        "validate",
		Aliases:     []string{"v"},
		Description: "Run import and duplicate class checks",
		Usage:       "/validate",
		Handler:     handleValidate,
	})
	registerCommand(Command{
		Name:        "outline",
		Aliases:     []string{"o"},
		Description: "Show the outline of an indexed file",
		Usage:       "/outline <file>",
		Handler:     handleOutline,
	})
	registerCommand(Command{
		Name:        "symbols",
		Aliases:     []string{"s"},
		Description: "Search the index snapshot by name",
		Usage:       "/symbols <pattern>",
		Handler:     handleSymbols,
	})
	registerCommand(Command{
		Name:        "quit",
		Aliases:     []string{"q", "exit"},
		Description: "Leave the browser",
		Usage:       "/quit",
		Handler: func(m Model, _ []string) (tea.Model, tea.Cmd) {
			return m, tea.Quit
		},
	})
}

func registerCommand(cmd Command) {
	commandRegistry[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		commandRegistry[alias] = cmd
	}
}

func lookupCommand(name string) (Command, bool) {
	cmd, ok := commandRegistry[strings.ToLower(name)]
	return cmd, ok
}

func handleHelp(m Model, _ []string) (tea.Model, tea.Cmd) {
	seen := map[string]bool{}
	var cmds []Command
	for _, cmd := range commandRegistry {
		if seen[cmd.Name] {
			continue
		}
		seen[cmd.Name] = true
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Commands"))
	b.WriteString("\n")
	for _, cmd := range cmds {
		fmt.Fprintf(&b, "  %-20s %s\n", cmd.Usage, dimStyle.Render(cmd.Description))
	}
	b.WriteString(dimStyle.Render("Type a bare class name to show it."))
	return m.setContent(b.String()), nil
}

func handleClasses(m Model, args []string) (tea.Model, tea.Cmd) {
	return m.setContent(renderClassList(m.manager.Registry(), strings.Join(args, " "))), nil
}

func handleClass(m Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m.setContent(errorStyle.Render("usage: /class <Name>")), nil
	}
	return m.setContent(renderClass(m.manager.Registry(), args[0])), nil
}

func handleReport(m Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m.setContent(errorStyle.Render("usage: /report <Name>")), nil
	}
	rep, err := m.manager.Registry().RestrictionReport(args[0])
	if err != nil {
		return m.setContent(errorStyle.Render(err.Error())), nil
	}
	return m.setContent(renderReport(rep)), nil
}

func handleValidate(m Model, _ []string) (tea.Model, tea.Cmd) {
	return m.setContent(renderDiagnostics(m.manager.Registry().Validate())), nil
}

func handleOutline(m Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m.setContent(errorStyle.Render("usage: /outline <file>")), nil
	}
	doc, err := m.manager.Document(args[0])
	if err != nil {
		return m.setContent(errorStyle.Render(err.Error())), nil
	}
	return m.setContent(renderOutline(args[0], doc.Outline(m.deep))), nil
}

func handleSymbols(m Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m.setContent(errorStyle.Render("usage: /symbols <pattern>")), nil
	}
	records, err := m.manager.SearchSymbols(index.SymbolQuery{NamePattern: args[0], Limit: 200})
	if errors.Is(err, index.ErrNoStore) {
		return m.setContent(warningStyle.Render("no index database configured; set index_db or pass --index-db")), nil
	}
	if err != nil {
		return m.setContent(errorStyle.Render(err.Error())), nil
	}
	return m.setContent(renderSymbolRecords(records)), nil
}
