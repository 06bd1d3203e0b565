// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#7AA2F7") // Blue
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#9ECE6A") // Green
	// WarningColor indicates newly observed items that need attention.
	WarningColor = lipgloss.Color("#E0AF68") // Amber
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#F7768E") // Red
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#565F89") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats new-item announcements.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// AmountStyle formats monetary values.
	AmountStyle = lipgloss.NewStyle().
			Bold(true)
)
