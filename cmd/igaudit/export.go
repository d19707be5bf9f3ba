package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"igaudit/pkg/logger"
	"igaudit/pkg/report"
	"igaudit/pkg/store"
	"igaudit/pkg/ui"
)

var (
	exportDir    string
	exportStdout bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current results to a JSON file",
	Long: `Write the accounts found by the last scan or import to
instatrack_results_<date>.json in the export directory.`,
	Example: `  igaudit export
  igaudit export --output ./results
  igaudit export --stdout > results.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a previously exported results file",
	Long: `Replace the current results with the accounts in an exported file.

Imported results are shown as a completed scan and are not exported again
automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVarP(&exportDir, "output", "o", "", "export directory (default from config)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "write the document to standard output")
}

func openStore() (store.Store, string, error) {
	cfg, err := loadConfig(map[string]interface{}{"output": exportDir})
	if err != nil {
		return nil, "", err
	}
	st, err := store.Open(cfg.Store, logger.GetLogger())
	if err != nil {
		return nil, "", err
	}
	return st, cfg.Export.Directory, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st, dir, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	doc, err := report.Export(cmd.Context(), st, "", now)
	if errors.Is(err, report.ErrNothingToExport) {
		ui.PrintWarning("Nothing to export", "run 'igaudit scan' first")
		return nil
	}
	if err != nil {
		return err
	}

	if exportStdout {
		data, err := report.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	path, err := report.WriteFile(dir, doc, now)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Exported %d accounts", doc.Count))
	ui.PrintInfo("File", path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := report.Import(cmd.Context(), st, f, time.Now())
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Imported %d accounts", doc.Count))
	return nil
}
