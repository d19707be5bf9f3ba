package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

// Message types for the TUI

// StatsMsg carries a new currentStats value
type StatsMsg struct {
	Stats scan.Stats
}

// ResultsMsg carries a new currentNonFollowers value
type ResultsMsg struct {
	Accounts []scan.Account
}

// ErrorMsg carries a new lastError value; empty clears it
type ErrorMsg struct {
	Message string
}

// DownloadedMsg carries a new isDownloaded value
type DownloadedMsg struct {
	Downloaded bool
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// MsgFromChange converts a store change into a view message
func MsgFromChange(c store.Change) (tea.Msg, bool) {
	switch c.Key {
	case store.KeyCurrentStats:
		var stats scan.Stats
		if err := json.Unmarshal(c.NewValue, &stats); err != nil {
			return nil, false
		}
		return StatsMsg{Stats: stats}, true

	case store.KeyCurrentNonFollowers:
		var accounts []scan.Account
		if err := json.Unmarshal(c.NewValue, &accounts); err != nil {
			return nil, false
		}
		return ResultsMsg{Accounts: accounts}, true

	case store.KeyLastError:
		var msg string
		if string(c.NewValue) != "null" {
			if err := json.Unmarshal(c.NewValue, &msg); err != nil {
				return nil, false
			}
		}
		return ErrorMsg{Message: msg}, true

	case store.KeyIsDownloaded:
		var downloaded bool
		if err := json.Unmarshal(c.NewValue, &downloaded); err != nil {
			return nil, false
		}
		return DownloadedMsg{Downloaded: downloaded}, true
	}
	return nil, false
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width/2-12, 10, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case StatsMsg:
		previous := m.Stats().Status
		m.SetStats(msg.Stats)
		if previous != msg.Stats.Status {
			m.logStatus(msg.Stats)
		}
		return m, nil

	case ResultsMsg:
		m.SetResults(msg.Accounts)
		return m, nil

	case ErrorMsg:
		m.SetLastError(msg.Message)
		if msg.Message != "" {
			m.AddLogMessage("ERROR", msg.Message)
		}
		return m, nil

	case DownloadedMsg:
		m.SetDownloaded(msg.Downloaded)
		if msg.Downloaded {
			m.AddLogMessage("SUCCESS", "Results exported")
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) logStatus(stats scan.Stats) {
	switch stats.Status {
	case scan.StatusScanning:
		m.AddLogMessage("INFO", "Scan started")
	case scan.StatusCompleted:
		m.AddLogMessage("SUCCESS", fmt.Sprintf("Scan complete: %d of %d accounts don't follow back", stats.NonFollowersCount, stats.ProcessedCount))
	case scan.StatusIdle:
		m.AddLogMessage("WARN", fmt.Sprintf("Scan stopped after %d accounts", stats.ProcessedCount))
	}
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.requestStop()
		return m, tea.Quit

	case "s", "S":
		if m.requestStop() {
			m.AddLogMessage("WARN", "Stop requested")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SendLog creates a log message
func SendLog(level, message string) tea.Msg {
	return LogMsg{Level: level, Message: message}
}
