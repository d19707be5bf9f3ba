package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"igaudit/pkg/store"
)

// TUI runs the live scan view
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI; onStop is invoked when the user stops the scan
func NewTUI(onStop func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onStop)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the TUI until the user quits or Stop is called
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Observe forwards a store change to the view
func (t *TUI) Observe(c store.Change) {
	if msg, ok := MsgFromChange(c); ok {
		t.Send(msg)
	}
}

// LogInfo logs an info message
func (t *TUI) LogInfo(message string) {
	t.Send(SendLog("INFO", message))
}

// LogError logs an error message
func (t *TUI) LogError(message string) {
	t.Send(SendLog("ERROR", message))
}
