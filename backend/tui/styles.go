package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorIce   = lipgloss.Color("#E0F2FE")
	ColorDeep  = lipgloss.Color("#1E3A8A")
	ColorMuted = lipgloss.Color("#64748B")
	ColorGood  = lipgloss.Color("#22C55E")
	ColorWarn  = lipgloss.Color("#F59E0B")
	ColorBad   = lipgloss.Color("#EF4444")
	ColorChart = lipgloss.Color("#38BDF8")
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorIce).
			Background(ColorDeep).
			Padding(0, 1)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			MarginRight(1)

	StyleTitle      = lipgloss.NewStyle().Bold(true).Foreground(ColorIce)
	StyleSubtitle   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleValue      = lipgloss.NewStyle().Bold(true)
	StyleChart      = lipgloss.NewStyle().Foreground(ColorChart)
	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorBad).Bold(true)

	StyleTabActive   = lipgloss.NewStyle().Bold(true).Foreground(ColorIce).Underline(true).Padding(0, 1)
	StyleTabInactive = lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1)
)
