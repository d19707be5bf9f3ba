package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igaudit/pkg/scan"
)

// Model is the live scan view
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Scan state mirrored from the store
	stats      scan.Stats
	results    []scan.Account
	lastError  string
	downloaded bool

	sessionStartTime time.Time
	onStop           func()
	stopRequested    bool

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
	maxResults     int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a view; onStop is called when the user asks to stop
// the scan and may be nil
func NewModel(onStop func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		progress:         p,
		stats:            scan.Stats{Status: scan.StatusIdle},
		sessionStartTime: time.Now(),
		onStop:           onStop,
		logMessages:      []LogMessage{},
		maxLogMessages:   50,
		maxResults:       10,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetStats replaces the mirrored stats
func (m *Model) SetStats(stats scan.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stats.Status == scan.StatusScanning && m.stats.Status != scan.StatusScanning {
		m.stopRequested = false
		if stats.StartedAt != nil {
			m.sessionStartTime = *stats.StartedAt
		}
	}
	m.stats = stats
}

// SetResults replaces the mirrored result list
func (m *Model) SetResults(accounts []scan.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = accounts
}

// SetLastError records the user-facing error, "" clearing it
func (m *Model) SetLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

// SetDownloaded records whether the results have been exported
func (m *Model) SetDownloaded(downloaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloaded = downloaded
}

// Stats returns the mirrored stats
func (m *Model) Stats() scan.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// RecentResults returns the newest results, oldest first
func (m *Model) RecentResults() []scan.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.results) - m.maxResults
	if start < 0 {
		start = 0
	}
	return append([]scan.Account(nil), m.results[start:]...)
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = warnOrange
	case "SUCCESS":
		color = okGreen
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// requestStop asks the engine to stop once per running scan
func (m *Model) requestStop() bool {
	m.mu.Lock()
	if m.stats.Status != scan.StatusScanning || m.stopRequested {
		m.mu.Unlock()
		return false
	}
	m.stopRequested = true
	onStop := m.onStop
	m.mu.Unlock()

	if onStop != nil {
		onStop()
	}
	return true
}
