package scan

import (
	"time"

	errs "igaudit/pkg/errors"
)

// Action names an inbound command
type Action string

const (
	ActionStartScan Action = "START_SCAN"
	ActionStopScan  Action = "STOP_SCAN"
)

// CommandConfig is the wire form of a scan configuration
type CommandConfig struct {
	UserID    string `json:"userId"`
	CSRFToken string `json:"csrfToken"`
	DelayMs   int    `json:"delayMs"`
	SessionID string `json:"sessionId,omitempty"`
}

// Config converts the wire form into a scan Config
func (c CommandConfig) Config() Config {
	return Config{
		TargetID:  c.UserID,
		AuthToken: c.CSRFToken,
		SessionID: c.SessionID,
		Delay:     time.Duration(c.DelayMs) * time.Millisecond,
	}
}

// Command is an inbound control message
type Command struct {
	Action Action         `json:"action"`
	Config *CommandConfig `json:"config,omitempty"`
}

// Ack is the immediate reply to a Command. It never carries scan results.
type Ack struct {
	Started bool   `json:"started,omitempty"`
	Stopped bool   `json:"stopped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dispatch handles a command and returns at once. A start while a scan is
// running is acknowledged and ignored; a stop only affects a running scan.
func (e *Engine) Dispatch(cmd Command) Ack {
	switch cmd.Action {
	case ActionStartScan:
		if cmd.Config == nil {
			return Ack{Error: "missing config"}
		}
		cfg := cmd.Config.Config()
		if err := cfg.Validate(); err != nil {
			return Ack{Error: errs.UserMessage(err)}
		}
		e.start(cfg)
		return Ack{Started: true}

	case ActionStopScan:
		if e.scanning.Load() {
			e.requestStop()
		}
		return Ack{Stopped: true}

	default:
		return Ack{Error: "unknown action"}
	}
}

func (e *Engine) start(cfg Config) {
	if !e.scanning.CompareAndSwap(false, true) {
		e.logger.Debug("Start ignored, scan already running")
		return
	}
	e.resetStop()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// the loop reports failures through the store
		_, _ = e.loop(e.baseCtx, cfg)
	}()
}
