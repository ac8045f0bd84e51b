package main

import "github.com/charmbracelet/lipgloss"

var (
	classStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	rangeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)
