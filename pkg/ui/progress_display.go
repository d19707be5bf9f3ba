package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"igaudit/pkg/instagram"
	"igaudit/pkg/scan"
	"igaudit/pkg/store"
)

// ProgressDisplay renders scan progress as a single updating line
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	stats     scan.Stats
	lastError string
	startTime time.Time
	now       func() time.Time
	isDebug   bool
}

// NewProgressDisplay creates a display writing to out
func NewProgressDisplay(out io.Writer, debug bool) *ProgressDisplay {
	if out == nil {
		out = Output
	}
	return &ProgressDisplay{
		out:       out,
		startTime: time.Now(),
		now:       time.Now,
		isDebug:   debug,
	}
}

// Observe implements Observer
func (p *ProgressDisplay) Observe(c store.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch c.Key {
	case store.KeyCurrentStats:
		var stats scan.Stats
		if err := json.Unmarshal(c.NewValue, &stats); err != nil {
			return
		}
		p.stats = stats
		if stats.StartedAt != nil {
			p.startTime = *stats.StartedAt
		}
		if stats.Status == scan.StatusScanning {
			p.printProgress()
		}

	case store.KeyLastError:
		var msg string
		if err := json.Unmarshal(c.NewValue, &msg); err == nil && msg != "" {
			p.lastError = msg
			fmt.Fprintf(p.out, "\n%s %s\n", Red("✗"), msg)
		}
	}
}

// Line renders the current progress line
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *ProgressDisplay) line() string {
	s := p.stats
	line := fmt.Sprintf("%s [%s] %3d%% • %d/%d checked • %s",
		Cyan("scanning"),
		RenderBar(s.Progress, 20),
		s.Progress,
		s.ProcessedCount,
		s.TotalFollowed,
		Yellow(fmt.Sprintf("%d not following back", s.NonFollowersCount)),
	)

	elapsed := p.now().Sub(p.startTime)
	if eta, ok := EstimateRemaining(s.ProcessedCount, s.TotalFollowed, elapsed); ok {
		line += " • eta " + FormatDuration(eta)
	}
	return line
}

func (p *ProgressDisplay) printProgress() {
	if p.isDebug {
		fmt.Fprintln(p.out, p.line())
		return
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
}

// Complete prints the summary for the final stats of a scan
func (p *ProgressDisplay) Complete(stats scan.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(p.startTime)
	switch stats.Status {
	case scan.StatusCompleted:
		fmt.Fprintf(p.out, "\n\n%s %s\n", Green("✓"), ScanCompleteMessage(stats.NonFollowersCount, stats.ProcessedCount))
	case scan.StatusError:
		fmt.Fprintf(p.out, "\n\n%s Scan failed after %d of %d accounts\n", Red("✗"), stats.ProcessedCount, stats.TotalFollowed)
	default:
		fmt.Fprintf(p.out, "\n\n%s Scan stopped after %d of %d accounts\n", Yellow("■"), stats.ProcessedCount, stats.TotalFollowed)
	}
	fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), Dim("took "+FormatDuration(elapsed)))
}

// PrintResults writes accounts as an aligned table
func PrintResults(w io.Writer, accounts []scan.Account) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, Dim("No accounts found."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tFULL NAME\tVERIFIED\tPROFILE")
	for _, a := range accounts {
		verified := ""
		if a.IsVerified {
			verified = "yes"
		}
		fmt.Fprintf(tw, "@%s\t%s\t%s\t%s\n", a.Username, a.FullName, verified, instagram.GetUserProfileURL(a.Username))
	}
	tw.Flush()
}
