// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorPrimary   = lipgloss.Color("#22C55E") // Green
	ColorSecondary = lipgloss.Color("#10B981") // Emerald
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorWarning   = lipgloss.Color("#FACC15") // Yellow
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#1E3A8A") // Navy
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0B1120")).
			Background(ColorWarning).
			Padding(0, 2)

	// Trading state in the status bar
	StatusConnected    = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	StatusReconnecting = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	MutedValue = lipgloss.NewStyle().Foreground(ColorMuted)
)

// newHelp returns a help model in the muted palette.
func newHelp() help.Model {
	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(ColorPrimary)
	h.Styles.ShortDesc = MutedValue
	h.Styles.ShortSeparator = MutedValue
	h.Styles.FullKey = h.Styles.ShortKey
	h.Styles.FullDesc = MutedValue
	h.Styles.FullSeparator = MutedValue
	return h
}
