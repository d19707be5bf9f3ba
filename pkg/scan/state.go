package scan

import (
	"math"
	"time"

	"igaudit/pkg/instagram"
)

// Stats is the persisted summary of a scan (the currentStats key)
type Stats struct {
	TotalFollowed     int        `json:"totalFollowed"`
	ProcessedCount    int        `json:"processedCount"`
	NonFollowersCount int        `json:"nonFollowersCount"`
	Progress          int        `json:"progress"`
	Status            Status     `json:"status"`
	Source            Source     `json:"source"`
	ScanID            string     `json:"scanId,omitempty"`
	UserID            string     `json:"userId,omitempty"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// State is the mutable record of the running (or last) scan. Only the
// engine loop touches it.
type State struct {
	Stats       Stats
	Accumulated []Account

	sawFirstPage bool
}

// NewState returns a fresh scanning state for userID
func NewState(scanID, userID string, now time.Time) *State {
	return &State{
		Stats: Stats{
			Status:    StatusScanning,
			Source:    SourceScan,
			ScanID:    scanID,
			UserID:    userID,
			StartedAt: &now,
			UpdatedAt: &now,
		},
		Accumulated: []Account{},
	}
}

// ApplyPage merges one fetched page. The total is taken from the first page
// only; processed counts and results only ever grow.
func (s *State) ApplyPage(page *instagram.FollowPage, now time.Time) []Account {
	if !s.sawFirstPage {
		s.Stats.TotalFollowed = page.Count
		s.sawFirstPage = true
	}

	found := Classify(page.Edges)
	s.Accumulated = append(s.Accumulated, found...)
	s.Stats.ProcessedCount += len(page.Edges)
	s.Stats.NonFollowersCount = len(s.Accumulated)
	s.Stats.Progress = Progress(s.Stats.ProcessedCount, s.Stats.TotalFollowed)
	s.touch(now)

	return found
}

// Finish records the terminal status
func (s *State) Finish(status Status, now time.Time) {
	s.Stats.Status = status
	s.touch(now)
}

func (s *State) touch(now time.Time) {
	s.Stats.UpdatedAt = &now
}

// Snapshot returns copies safe to hand to the store
func (s *State) Snapshot() (Stats, []Account) {
	accounts := make([]Account, len(s.Accumulated))
	copy(accounts, s.Accumulated)
	return s.Stats, accounts
}

// Progress is processed/total as a whole percentage capped at 100, or 0
// while the total is unknown. It reads 100 only once processed reaches
// total, so 199 of 200 shows 99 rather than rounding up.
func Progress(processed, total int) int {
	if total <= 0 {
		return 0
	}
	if processed >= total {
		return 100
	}
	p := int(math.Round(float64(processed) / float64(total) * 100))
	if p > 99 {
		return 99
	}
	if p < 0 {
		return 0
	}
	return p
}
