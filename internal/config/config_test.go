package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5*time.Minute, cfg.Email.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Email.Lookback)
	assert.Equal(t, "INBOX", cfg.Email.Mailbox)
	assert.Equal(t, 15*time.Minute, cfg.Ringover.Interval)
	assert.Equal(t, 16*time.Minute, cfg.Ringover.Lookback)
	assert.Equal(t, 60, cfg.Extraction.ConfidenceThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Dedup.Window)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.True(t, cfg.WebForm.Enabled)
	assert.Equal(t, 10, cfg.WebForm.RateLimit)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
email:
  host: imap.example.ch
  interval: 2m
ringover:
  internal_prefixes: ["+41215", "+41216"]
dedup:
  window: 45m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "imap.example.ch", cfg.Email.Host)
	assert.Equal(t, 2*time.Minute, cfg.Email.Interval)
	assert.Equal(t, []string{"+41215", "+41216"}, cfg.Ringover.InternalPrefixes)
	assert.Equal(t, 45*time.Minute, cfg.Dedup.Window)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADCAPTURE_LOG_LEVEL", "warn")
	t.Setenv("LEADCAPTURE_RINGOVER_API_KEY", "rk")
	t.Setenv("LEADCAPTURE_STORE_DATABASE_URL", "postgres://localhost/leads")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "rk", cfg.Ringover.APIKey)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 8080
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/leads"
	assert.NoError(t, cfg.Validate())

	cfg.Extraction.ConfidenceThreshold = 120
	assert.Error(t, cfg.Validate())
}

func TestEnabledAdapters(t *testing.T) {
	cfg := &Config{}
	cfg.Email.Host = "imap.example.ch"
	cfg.Email.Username = "info@example.ch"
	cfg.WhatsApp.VerifyToken = "tok"
	cfg.WebForm.Enabled = true
	cfg.Anthropic.Key = "sk"

	a := cfg.EnabledAdapters()
	assert.False(t, a.Email, "password missing")
	assert.True(t, a.Messaging)
	assert.False(t, a.MessagingAck)
	assert.True(t, a.PrimaryExtraction)
	assert.False(t, a.SecondaryExtraction)
	assert.Equal(t, []string{"messaging", "webform"}, a.Channels())
	assert.Contains(t, a.Missing(), "telephony poller (ringover.api_key)")

	cfg.Email.Password = "pw"
	cfg.Ringover.APIKey = "rk"
	assert.Equal(t, []string{"email", "telephony", "messaging", "webform"}, cfg.EnabledAdapters().Channels())
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}
