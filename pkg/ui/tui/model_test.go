package tui

import (
	"encoding/json"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

func change(t *testing.T, key string, v any) store.Change {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return store.Change{Key: key, NewValue: raw}
}

func send(t *testing.T, m *Model, c store.Change) {
	t.Helper()
	msg, ok := MsgFromChange(c)
	require.True(t, ok, c.Key)
	m.Update(msg)
}

func scanning(processed, total, found int) scan.Stats {
	now := time.Now()
	return scan.Stats{
		TotalFollowed: total, ProcessedCount: processed, NonFollowersCount: found,
		Progress: scan.Progress(processed, total), Status: scan.StatusScanning, Source: scan.SourceScan,
		StartedAt: &now,
	}
}

func TestMsgFromChange(t *testing.T) {
	msg, ok := MsgFromChange(change(t, store.KeyLastError, nil))
	require.True(t, ok)
	assert.Equal(t, ErrorMsg{}, msg)

	msg, ok = MsgFromChange(change(t, store.KeyIsDownloaded, true))
	require.True(t, ok)
	assert.Equal(t, DownloadedMsg{Downloaded: true}, msg)

	_, ok = MsgFromChange(change(t, "unrelated", 1))
	assert.False(t, ok)

	_, ok = MsgFromChange(store.Change{Key: store.KeyCurrentStats, NewValue: json.RawMessage(`"bad"`)})
	assert.False(t, ok)
}

func TestModelMirrorsStore(t *testing.T) {
	model := NewModel(nil)
	m := &model

	send(t, m, change(t, store.KeyCurrentStats, scanning(50, 120, 10)))
	send(t, m, change(t, store.KeyCurrentNonFollowers, []scan.Account{{ID: "1", Username: "alice"}}))

	assert.Equal(t, 50, m.Stats().ProcessedCount)
	require.Len(t, m.RecentResults(), 1)
	assert.Equal(t, "alice", m.RecentResults()[0].Username)

	send(t, m, change(t, store.KeyLastError, "too many requests, please wait a while before scanning again"))
	assert.Equal(t, "too many requests, please wait a while before scanning again", m.lastError)

	send(t, m, change(t, store.KeyLastError, nil))
	assert.Empty(t, m.lastError)
}

func TestRecentResultsKeepsNewest(t *testing.T) {
	model := NewModel(nil)
	var accounts []scan.Account
	for i := 0; i < 25; i++ {
		accounts = append(accounts, scan.Account{Username: string(rune('a' + i))})
	}
	model.SetResults(accounts)

	recent := model.RecentResults()
	require.Len(t, recent, 10)
	assert.Equal(t, "p", recent[0].Username)
	assert.Equal(t, "y", recent[9].Username)
}

func TestStopKey(t *testing.T) {
	stops := 0
	model := NewModel(func() { stops++ })
	m := &model

	// nothing to stop yet
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Zero(t, stops)

	send(t, m, change(t, store.KeyCurrentStats, scanning(0, 100, 0)))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, 1, stops, "stop is requested once per scan")

	stopped := scanning(20, 100, 1)
	stopped.Status = scan.StatusIdle
	send(t, m, change(t, store.KeyCurrentStats, stopped))

	send(t, m, change(t, store.KeyCurrentStats, scanning(0, 100, 0)))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, 2, stops)
}

func TestQuitStopsScan(t *testing.T) {
	stops := 0
	model := NewModel(func() { stops++ })
	m := &model
	send(t, m, change(t, store.KeyCurrentStats, scanning(0, 100, 0)))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, stops)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStatusTransitionsAreLogged(t *testing.T) {
	model := NewModel(nil)
	m := &model

	send(t, m, change(t, store.KeyCurrentStats, scanning(0, 2, 0)))
	done := scanning(2, 2, 1)
	done.Status = scan.StatusCompleted
	send(t, m, change(t, store.KeyCurrentStats, done))
	send(t, m, change(t, store.KeyIsDownloaded, true))

	var messages []string
	for _, l := range m.logMessages {
		messages = append(messages, l.Message)
	}
	assert.Equal(t, []string{
		"Scan started",
		"Scan complete: 1 of 2 accounts don't follow back",
		"Results exported",
	}, messages)
}

func TestView(t *testing.T) {
	model := NewModel(nil)
	m := &model
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	send(t, m, change(t, store.KeyCurrentStats, scanning(50, 120, 2)))
	send(t, m, change(t, store.KeyCurrentNonFollowers, []scan.Account{{Username: "alice", IsVerified: true}, {Username: "bob"}}))

	view := m.View()
	assert.Contains(t, view, "SCANNING")
	assert.Contains(t, view, "50 / 120")
	assert.Contains(t, view, "@alice")
	assert.Contains(t, view, "@bob")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:45", formatDuration(45*time.Second))
	assert.Equal(t, "02:05", formatDuration(125*time.Second))
	assert.Equal(t, "01:01:00", formatDuration(61*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 20))
	assert.Equal(t, "abcdefg…", truncate("abcdefghijkl", 8))
}
