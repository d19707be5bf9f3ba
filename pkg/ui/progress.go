package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// RenderBar draws a percent bar of the given width
func RenderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// EstimateRemaining extrapolates the time left from the pace so far
func EstimateRemaining(processed, total int, elapsed time.Duration) (time.Duration, bool) {
	if processed <= 0 || total <= processed || elapsed <= 0 {
		return 0, false
	}
	perItem := elapsed / time.Duration(processed)
	return perItem * time.Duration(total-processed), true
}
