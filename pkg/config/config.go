package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for igaudit
type Config struct {
	// Upstream access and the session used to talk to it
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Pagination pacing
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Persistence bridge backend
	Store StoreConfig `yaml:"store" json:"store"`

	// Local command/observer server
	Server ServerConfig `yaml:"server" json:"server"`

	// Result export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Where session cookies are harvested from
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	CSRFToken         string        `yaml:"csrf_token" json:"csrf_token"`
	DSUserID          string        `yaml:"ds_user_id" json:"ds_user_id"`
	SessionID         string        `yaml:"session_id" json:"session_id"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// ScanConfig holds the pacing applied between pages
type ScanConfig struct {
	Delay    time.Duration `yaml:"delay" json:"delay"`
	Jitter   time.Duration `yaml:"jitter" json:"jitter"`
	PageSize int           `yaml:"page_size" json:"page_size"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// ExportConfig holds result export settings
type ExportConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Auto      bool   `yaml:"auto" json:"auto"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// CredentialsConfig lists credential sources in lookup order
type CredentialsConfig struct {
	Sources        []string `yaml:"sources" json:"sources"`
	File           string   `yaml:"file" json:"file"`
	ChromeDebugURL string   `yaml:"chrome_debug_url" json:"chrome_debug_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Store backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Credential source names
const (
	SourceConfig  = "config"
	SourceEnv     = "env"
	SourceKeyring = "keyring"
	SourceFile    = "file"
	SourceChrome  = "chrome"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Instagram: InstagramConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			BaseURL:           "https://www.instagram.com",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 0,
		},
		Scan: ScanConfig{
			Delay:    1500 * time.Millisecond,
			Jitter:   500 * time.Millisecond,
			PageSize: 50,
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    filepath.Join(dataDir, "state.json"),
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8765",
		},
		Export: ExportConfig{
			Directory: ".",
			Auto:      true,
		},
		Notifications: NotificationConfig{
			Enabled: true,
		},
		Credentials: CredentialsConfig{
			Sources:        []string{SourceConfig, SourceEnv, SourceKeyring, SourceFile},
			File:           filepath.Join(dataDir, "credentials.enc"),
			ChromeDebugURL: "http://127.0.0.1:9222",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "igaudit")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "igaudit")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IGAUDIT_CSRF_TOKEN"); v != "" {
		c.Instagram.CSRFToken = v
	}
	if v := os.Getenv("IGAUDIT_DS_USER_ID"); v != "" {
		c.Instagram.DSUserID = v
	}
	if v := os.Getenv("IGAUDIT_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("IGAUDIT_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("IGAUDIT_BASE_URL"); v != "" {
		c.Instagram.BaseURL = v
	}
	if v := os.Getenv("IGAUDIT_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGAUDIT_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.Instagram.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("IGAUDIT_SCAN_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGAUDIT_SCAN_DELAY: %w", err))
		} else {
			c.Scan.Delay = d
		}
	}

	if v := os.Getenv("IGAUDIT_STORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("IGAUDIT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}

	if v := os.Getenv("IGAUDIT_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}

	if v := os.Getenv("IGAUDIT_EXPORT_DIR"); v != "" {
		c.Export.Directory = v
	}

	if v := os.Getenv("IGAUDIT_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("IGAUDIT_CREDENTIAL_SOURCES"); v != "" {
		c.Credentials.Sources = splitList(v)
	}
	if v := os.Getenv("IGAUDIT_CHROME_DEBUG_URL"); v != "" {
		c.Credentials.ChromeDebugURL = v
	}

	if v := os.Getenv("IGAUDIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igaudit.yaml",
		".igaudit.yml",
		filepath.Join(home, ".config", "igaudit", "config.yaml"),
		filepath.Join(home, ".config", "igaudit", "config.yml"),
		filepath.Join(home, ".igaudit.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where Save writes when no explicit path is given
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igaudit", "config.yaml")
}

// Validate checks if the configuration is valid. Credentials are not
// required here: they may come from any configured credential source.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Scan.Delay < 0 {
		errs = append(errs, errors.New("scan delay cannot be negative"))
	}
	if c.Scan.Jitter < 0 {
		errs = append(errs, errors.New("scan jitter cannot be negative"))
	}
	if c.Scan.PageSize <= 0 || c.Scan.PageSize > 50 {
		errs = append(errs, errors.New("scan page size must be between 1 and 50"))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store path is required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store backend %q", c.Store.Backend))
	}

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server listen address is required"))
	}

	if c.Export.Directory == "" {
		errs = append(errs, errors.New("export directory is required"))
	}

	validSources := map[string]bool{
		SourceConfig: true, SourceEnv: true, SourceKeyring: true, SourceFile: true, SourceChrome: true,
	}
	for _, s := range c.Credentials.Sources {
		if !validSources[s] {
			errs = append(errs, fmt.Errorf("invalid credential source %q", s))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold session cookies
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags that were explicitly set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["csrf-token"].(string); ok && v != "" {
		c.Instagram.CSRFToken = v
	}
	if v, ok := flags["user-id"].(string); ok && v != "" {
		c.Instagram.DSUserID = v
	}
	if v, ok := flags["session-id"].(string); ok && v != "" {
		c.Instagram.SessionID = v
	}
	if v, ok := flags["delay"].(time.Duration); ok {
		c.Scan.Delay = v
	}
	if v, ok := flags["store"].(string); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := flags["store-path"].(string); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := flags["listen"].(string); ok && v != "" {
		c.Server.ListenAddr = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Export.Directory = v
	}
	if v, ok := flags["no-notify"].(bool); ok && v {
		c.Notifications.Enabled = false
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igaudit.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
