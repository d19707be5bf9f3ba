package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1500*time.Millisecond, cfg.Scan.Delay)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Jitter)
	assert.Equal(t, 50, cfg.Scan.PageSize)
	assert.Equal(t, "https://www.instagram.com", cfg.Instagram.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.True(t, cfg.Export.Auto)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGAUDIT_CSRF_TOKEN", "env-token")
	t.Setenv("IGAUDIT_DS_USER_ID", "12345")
	t.Setenv("IGAUDIT_SCAN_DELAY", "2s")
	t.Setenv("IGAUDIT_STORE_BACKEND", "SQLite")
	t.Setenv("IGAUDIT_REQUESTS_PER_MINUTE", "20")
	t.Setenv("IGAUDIT_NOTIFICATIONS_ENABLED", "false")
	t.Setenv("IGAUDIT_CREDENTIAL_SOURCES", "env, chrome")
	t.Setenv("IGAUDIT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-token", cfg.Instagram.CSRFToken)
	assert.Equal(t, "12345", cfg.Instagram.DSUserID)
	assert.Equal(t, 2*time.Second, cfg.Scan.Delay)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 20, cfg.Instagram.RequestsPerMinute)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, []string{SourceEnv, SourceChrome}, cfg.Credentials.Sources)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IGAUDIT_SCAN_DELAY", "soon")
	t.Setenv("IGAUDIT_REQUESTS_PER_MINUTE", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGAUDIT_SCAN_DELAY")
	assert.Contains(t, err.Error(), "IGAUDIT_REQUESTS_PER_MINUTE")
	assert.Equal(t, 1500*time.Millisecond, cfg.Scan.Delay)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
instagram:
  ds_user_id: "999"
  timeout: 10s
scan:
  delay: 3s
  page_size: 25
store:
  backend: memory
credentials:
  sources: [env]
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "999", cfg.Instagram.DSUserID)
	assert.Equal(t, 10*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Scan.Delay)
	assert.Equal(t, 25, cfg.Scan.PageSize)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, []string{SourceEnv}, cfg.Credentials.Sources)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// untouched sections keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.Jitter)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero delay allowed", func(c *Config) { c.Scan.Delay = 0 }, ""},
		{"negative delay", func(c *Config) { c.Scan.Delay = -time.Second }, "scan delay"},
		{"negative jitter", func(c *Config) { c.Scan.Jitter = -1 }, "scan jitter"},
		{"page size too large", func(c *Config) { c.Scan.PageSize = 100 }, "page size"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "invalid store backend"},
		{"sqlite without path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.Path = "" }, "store path"},
		{"memory without path", func(c *Config) { c.Store.Backend = BackendMemory; c.Store.Path = "" }, ""},
		{"unknown credential source", func(c *Config) { c.Credentials.Sources = []string{"cookie-jar"} }, "credential source"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"zero timeout", func(c *Config) { c.Instagram.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Delay = -1
	cfg.Logging.Level = "nope"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 2, len(strings.Split(err.Error(), "\n")))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scan.Delay = 2500 * time.Millisecond
	cfg.Store.Backend = BackendSQLite
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg.Scan, loaded.Scan)
	assert.Equal(t, cfg.Store, loaded.Store)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"user-id":    "42",
		"csrf-token": "flag-token",
		"delay":      time.Duration(0),
		"store":      BackendMemory,
		"no-notify":  true,
		"output":     "",
	})

	assert.Equal(t, "42", cfg.Instagram.DSUserID)
	assert.Equal(t, "flag-token", cfg.Instagram.CSRFToken)
	assert.Equal(t, time.Duration(0), cfg.Scan.Delay)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, ".", cfg.Export.Directory)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instagram:\n  ds_user_id: from-file\nlogging:\n  level: error\n"), 0644))

	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("IGAUDIT_DS_USER_ID", "from-env")

	cfg, err := Load(path, map[string]interface{}{"log-level": "debug"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Instagram.DSUserID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadReportsValidationFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("IGAUDIT_STORE_BACKEND", "redis")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
