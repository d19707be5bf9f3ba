package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igaudit/pkg/auth"
	"igaudit/pkg/config"
	"igaudit/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igaudit configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGAUDIT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write the default configuration to $HOME/.config/igaudit/config.yaml,
or to the path given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Session cookies are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Run 'igaudit auth login' or fill in the instagram section")
	fmt.Fprintln(ui.Output, "2. Run 'igaudit config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "3. Start with 'igaudit scan'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	display := *cfg
	display.Instagram.CSRFToken = auth.Mask(display.Instagram.CSRFToken)
	display.Instagram.SessionID = auth.Mask(display.Instagram.SessionID)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Scan.Delay < 500*time.Millisecond {
		warnings = append(warnings, "scan delay below 500ms makes rate limiting likely")
	}
	if cfg.Store.Backend == config.BackendMemory {
		warnings = append(warnings, "memory store keeps nothing between runs")
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Store: %s (%s)\n", cfg.Store.Backend, cfg.Store.Path)
	fmt.Fprintf(ui.Output, "  Scan delay: %s (+ up to %s jitter)\n", cfg.Scan.Delay, cfg.Scan.Jitter)
	fmt.Fprintf(ui.Output, "  Export directory: %s\n", cfg.Export.Directory)
	fmt.Fprintf(ui.Output, "  Credential sources: %v\n", cfg.Credentials.Sources)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
