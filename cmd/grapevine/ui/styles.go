package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Shared palette for the TUI and the plain CLI output.
var (
	Heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	Warn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Spinner = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	Plain   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8"))
)

// styleFor picks the transcript style from a line's prefix.
func styleFor(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "> "):
		return Heading
	case strings.HasPrefix(line, "[DEBUG] "):
		return Warn
	case strings.HasPrefix(line, "Error: "):
		return Failure
	case strings.HasPrefix(line, "  "):
		return Dim
	}
	return Plain
}
