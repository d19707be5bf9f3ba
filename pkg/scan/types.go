package scan

import (
	"time"

	errs "igaudit/pkg/errors"
)

// Status is the lifecycle state of a scan
type Status string

const (
	StatusIdle      Status = "idle"
	StatusScanning  Status = "scanning"
	StatusPaused    Status = "paused" // reserved, never set by the engine
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Source tells engine-produced results apart from imported ones
type Source string

const (
	SourceScan   Source = "scan"
	SourceImport Source = "import"
)

// Account is one followed account that does not follow back. JSON names
// match the upstream node so exported files can be imported unchanged.
type Account struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsVerified    bool   `json:"is_verified"`
	FollowsViewer bool   `json:"follows_viewer"`
}

// Config holds the inputs of one scan. It is copied when a scan starts.
type Config struct {
	TargetID  string
	AuthToken string
	SessionID string
	Delay     time.Duration
}

// Validate reports missing preconditions. These never enter the loop.
func (c Config) Validate() error {
	if c.TargetID == "" || c.AuthToken == "" {
		return errs.New(errs.ErrorTypePreconditionMissing, "session not found")
	}
	if c.Delay < 0 {
		return errs.New(errs.ErrorTypePreconditionMissing, "delay cannot be negative")
	}
	return nil
}
