package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Status  lipgloss.Style
	Student lipgloss.Style
	Meta    lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Confirmation bar
	Confirm lipgloss.Style

	// Event tone styles
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Status colors
	StatusIdle    lipgloss.Style
	StatusRunning lipgloss.Style
	StatusPaused  lipgloss.Style
	StatusStopped lipgloss.Style
}{
	// Layout styles
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	// Header styles
	Status: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Student: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	Meta: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Footer style
	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Confirmation bar
	Confirm: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("58")),

	// Event tone styles
	Info: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	Success: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	Warning: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	// Status colors
	StatusIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusRunning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	StatusPaused: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusStopped: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),
}
