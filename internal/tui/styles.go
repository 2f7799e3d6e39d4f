package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeCategoryStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color("#5B8DEF")).
				Padding(0, 1)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	acceptedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3FB950"))

	duplicateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#D29922"))

	notExpectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)
