package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igaudit/pkg/auth"
	"igaudit/pkg/logger"
	"igaudit/pkg/scraper"
	"igaudit/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Instagram session",
	Long: `Manage the Instagram session cookies igaudit scans with.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

They can also come from the config file, IGAUDIT_* environment variables
or a Chrome instance started with --remote-debugging-port.

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store session cookies securely",
	Long: `Store the ds_user_id, csrftoken and sessionid cookies in the system
keychain, falling back to an encrypted file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which session a scan would use",
	Long:  `Check every configured credential source in order and show the session found, with secrets masked.`,
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to copy the session cookies from a browser",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowCookieExtractionGuide(ui.Output)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(guideCmd)
}

func sessionManager() (*auth.Manager, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	stores := scraper.SessionStores(cfg, logger.GetLogger())
	if len(stores) == 0 {
		return nil, auth.ErrStoreUnavailable
	}
	return auth.NewManager(stores...), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := sessionManager()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowQuickExtractGuide(ui.Output)
	fmt.Fprintln(ui.Output)

	userID, err := prompt(reader, auth.CookieUserID+": ")
	if err != nil {
		return err
	}
	if userID == "help" {
		auth.ShowCookieExtractionGuide(ui.Output)
		if userID, err = prompt(reader, auth.CookieUserID+": "); err != nil {
			return err
		}
	}

	fmt.Fprint(ui.Output, auth.CookieCSRFToken+" (hidden): ")
	csrfToken, err := readSecret(reader)
	if err != nil {
		return err
	}

	fmt.Fprint(ui.Output, auth.CookieSessionID+" (hidden, optional): ")
	sessionID, err := readSecret(reader)
	if err != nil {
		return err
	}

	session := &auth.Session{UserID: userID, CSRFToken: csrfToken, SessionID: sessionID}
	where, err := manager.Store(cmd.Context(), session)
	if err != nil {
		return err
	}

	masked := session.Masked()
	ui.PrintSuccess("Session stored in " + where)
	ui.PrintInfo("Account", masked.UserID)
	ui.PrintInfo("CSRF token", masked.CSRFToken)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := sessionManager()
	if err != nil {
		return err
	}

	if err := manager.Delete(cmd.Context()); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored session")
			return nil
		}
		return err
	}
	ui.PrintSuccess("Stored session removed")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	chain := auth.NewChain(logger.GetLogger(), scraper.CredentialSources(cfg, logger.GetLogger())...)
	session, err := chain.Detect(cmd.Context())
	if errors.Is(err, auth.ErrSessionNotFound) {
		var names []string
		for _, src := range chain.Sources() {
			names = append(names, src.Name())
		}
		ui.PrintWarning("No session found in", strings.Join(names, ", "))
		return nil
	}
	if err != nil {
		return err
	}

	masked := session.Masked()
	ui.PrintInfo("Source", masked.Source)
	ui.PrintInfo("Account", masked.UserID)
	ui.PrintInfo("CSRF token", masked.CSRFToken)
	if masked.SessionID != "" {
		ui.PrintInfo("Session ID", masked.SessionID)
	}
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(ui.Output, label)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads a value from stdin without echoing when it is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
