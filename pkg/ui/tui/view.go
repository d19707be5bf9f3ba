package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igaudit/pkg/scan"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, headerStyle.Render("igaudit · who doesn't follow you back"))

	columnWidth := (m.width - 4) / 2
	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, m.renderStatsPanel(columnWidth), m.renderLogsPanel(columnWidth)),
		"  ",
		m.renderResultsPanel(columnWidth),
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("s stop • q quit • ? help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatsPanel renders the scan statistics
func (m *Model) renderStatsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.stats
	status := statusStyle(string(s.Status)).Render(strings.ToUpper(string(s.Status)))
	if s.Status == scan.StatusScanning {
		status = m.spinner.View() + " " + status
	}
	if m.stopRequested && s.Status == scan.StatusScanning {
		status += warningStyle.Render("  stopping…")
	}

	lines := []string{
		titleStyle.Render(" SCAN "),
		fmt.Sprintf("%s %s", labelStyle.Render("Status:"), status),
		m.progress.ViewAs(float64(s.Progress) / 100),
		fmt.Sprintf("%s %s", labelStyle.Render("Checked:"), valueStyle.Render(fmt.Sprintf("%d / %d", s.ProcessedCount, s.TotalFollowed))),
		fmt.Sprintf("%s %s", labelStyle.Render("Not following back:"), valueStyle.Render(fmt.Sprintf("%d", s.NonFollowersCount))),
	}

	if s.Source == scan.SourceImport {
		lines = append(lines, dimStyle.Render("Results imported from file"))
	} else if s.Status == scan.StatusScanning {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Elapsed:"), valueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))))
	}
	if m.downloaded {
		lines = append(lines, successStyle.Render("✓ exported"))
	}
	if m.lastError != "" {
		lines = append(lines, errorStyle.Render("✗ "+m.lastError))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderResultsPanel lists the most recent accounts found
func (m *Model) renderResultsPanel(width int) string {
	recent := m.RecentResults()

	m.mu.RLock()
	total := len(m.results)
	m.mu.RUnlock()

	lines := []string{titleStyle.Render(" NOT FOLLOWING BACK ")}
	if total == 0 {
		lines = append(lines, dimStyle.Render("Nobody yet"))
	}
	if hidden := total - len(recent); hidden > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d earlier", hidden)))
	}
	for _, a := range recent {
		line := "@" + a.Username
		if a.IsVerified {
			line += " ✓"
		}
		if a.FullName != "" {
			line += dimStyle.Render("  " + a.FullName)
		}
		lines = append(lines, truncate(line, width-4))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.logMessages) - 6
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, truncate(log.Message, width-25)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No events yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" EVENTS "), content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  s        - Stop the running scan (results so far are kept)
  q        - Stop and quit
  ctrl+l   - Clear events
  ?        - Toggle this help
`
	return panelStyle.Width(m.width - 2).Render(help)
}

func truncate(s string, max int) string {
	if max < 4 || lipgloss.Width(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) > max-1 {
		runes = runes[:max-1]
	}
	return string(runes) + "…"
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
