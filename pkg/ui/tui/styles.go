package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent     = lipgloss.Color("#E1306C")
	accent2    = lipgloss.Color("#833AB4")
	okGreen    = lipgloss.Color("#3DDC84")
	warnOrange = lipgloss.Color("#F77737")
	errorRed   = lipgloss.Color("#FF3B30")
	dimWhite   = lipgloss.Color("#B0B0B0")
	darkBg     = lipgloss.Color("#16161E")

	headerStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0, 0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent2).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accent2).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnOrange).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 0, 0, 1)
)

// statusStyle picks the colour for a scan status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return successStyle
	case "error":
		return errorStyle
	case "scanning":
		return labelStyle
	default:
		return warningStyle
	}
}
