package cmd

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	publishedBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Width(10)
	draftBadge     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Width(10)
	idColumn       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(38)
)
