package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igaudit/pkg/auth"
	"igaudit/pkg/logger"
	"igaudit/pkg/scan"
	"igaudit/pkg/scraper"
	"igaudit/pkg/store"
	"igaudit/pkg/ui"
	"igaudit/pkg/ui/tui"
)

var (
	// Scan command flags
	scanDelay    time.Duration
	outputDir    string
	noNotify     bool
	useTUI       bool
	showResults  bool
	scanDebugOut bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the accounts you follow for ones that don't follow back",
	Long: `Walk the full list of accounts you follow, one page at a time, and
record every account that does not follow you back.

The session is taken from the first configured credential source that has
one (see 'igaudit auth status'). Progress is saved as the scan runs, so
'igaudit status' and the server always see the latest state. Press Ctrl+C
to stop; the accounts found so far are kept.`,
	Example: `  # Scan with the configured pacing
  igaudit scan

  # Slower pacing and an interactive view
  igaudit scan --delay 3s --tui

  # Write the results file somewhere else
  igaudit scan --output ./results`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().DurationVar(&scanDelay, "delay", 0, "base delay between pages (default from config)")
	scanCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the results file")
	scanCmd.Flags().BoolVar(&noNotify, "no-notify", false, "disable the desktop notification")
	scanCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	scanCmd.Flags().BoolVar(&showResults, "list", true, "print the accounts found when the scan ends")
	scanCmd.Flags().BoolVar(&scanDebugOut, "plain", false, "print one progress line per page instead of updating in place")
}

func runScan(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"output":    outputDir,
		"no-notify": noNotify,
	}
	if cmd.Flags().Changed("delay") {
		flags["delay"] = scanDelay
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	s, err := scraper.New(cfg, log, scraper.WithNotifier(ui.NewNotifier()))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := s.Credentials().Detect(ctx)
	if errors.Is(err, auth.ErrSessionNotFound) {
		ui.PrintError("No Instagram session found")
		fmt.Fprintln(ui.Output, "\nStore one with:")
		fmt.Fprintln(ui.Output, "  igaudit auth login")
		return err
	}
	if err != nil {
		return err
	}

	if useTUI {
		return runScanTUI(ctx, s, session)
	}

	ui.PrintLogo()
	ui.PrintInfo("Account", session.UserID)
	ui.PrintInfo("Session source", session.Source)

	display := ui.NewProgressDisplay(ui.Output, scanDebugOut)
	detach := ui.Attach(s.Store(), display)
	stats, scanErr := s.Engine().Run(ctx, s.ScanConfig(session))
	detach()

	display.Complete(stats)
	if scanErr != nil {
		return scanErr
	}

	if showResults && stats.Status == scan.StatusCompleted {
		var accounts []scan.Account
		if _, err := store.GetInto(context.WithoutCancel(ctx), s.Store(), store.KeyCurrentNonFollowers, &accounts); err == nil {
			fmt.Fprintln(ui.Output)
			ui.PrintResults(ui.Output, accounts)
		}
	}

	if ae := s.AutoExporter(); ae != nil && ae.LastPath() != "" {
		ui.PrintInfo("Results saved", ae.LastPath())
	}
	return nil
}

// runScanTUI runs the scan in the background while the TUI owns the
// terminal. Stopping from the TUI sends a stop command to the engine.
func runScanTUI(ctx context.Context, s *scraper.Scraper, session *auth.Session) error {
	engine := s.Engine()
	terminal := tui.NewTUI(func() {
		engine.Dispatch(scan.Command{Action: scan.ActionStopScan})
	})
	detach := ui.Attach(s.Store(), terminal)
	defer detach()

	type result struct {
		stats scan.Stats
		err   error
	}
	scanDone := make(chan result, 1)
	go func() {
		stats, err := engine.Run(ctx, s.ScanConfig(session))
		scanDone <- result{stats, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case res := <-scanDone:
		if ae := s.AutoExporter(); ae != nil && ae.LastPath() != "" {
			terminal.LogInfo("Results saved to " + ae.LastPath())
		}
		// leave the final state on screen until the user quits
		if err := <-tuiDone; err != nil {
			return err
		}
		return res.err
	case err := <-tuiDone:
		engine.Dispatch(scan.Command{Action: scan.ActionStopScan})
		res := <-scanDone
		if err != nil {
			return err
		}
		return res.err
	}
}
