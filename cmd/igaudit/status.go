package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"igaudit/pkg/scan"
	"igaudit/pkg/store"
	"igaudit/pkg/ui"
)

var statusList bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the last scan",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusList, "list", "l", false, "also list the accounts found")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	var stats scan.Stats
	ok, err := store.GetInto(ctx, st, store.KeyCurrentStats, &stats)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintInfo("Status", "no scan yet")
		return nil
	}

	ui.PrintInfo("Status", string(stats.Status))
	ui.PrintInfo("Source", string(stats.Source))
	if stats.UserID != "" {
		ui.PrintInfo("Account", stats.UserID)
	}
	ui.PrintInfo("Progress", fmt.Sprintf("%s %d/%d", ui.RenderBar(stats.Progress, 30), stats.ProcessedCount, stats.TotalFollowed))
	ui.PrintInfo("Non-followers", strconv.Itoa(stats.NonFollowersCount))
	if stats.UpdatedAt != nil {
		ui.PrintInfo("Updated", stats.UpdatedAt.Local().Format(time.DateTime))
	}

	var lastErr string
	if ok, err := store.GetInto(ctx, st, store.KeyLastError, &lastErr); err == nil && ok && lastErr != "" {
		ui.PrintWarning("Last error", lastErr)
	}

	var downloaded bool
	if _, err := store.GetInto(ctx, st, store.KeyIsDownloaded, &downloaded); err == nil {
		ui.PrintInfo("Exported", strconv.FormatBool(downloaded))
	}

	if statusList {
		var accounts []scan.Account
		if _, err := store.GetInto(ctx, st, store.KeyCurrentNonFollowers, &accounts); err != nil {
			return err
		}
		fmt.Fprintln(ui.Output)
		ui.PrintResults(ui.Output, accounts)
	}
	return nil
}
