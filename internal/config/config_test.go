package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "leads.db", cfg.Store.Path)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.Gemini.BaseURL)
	assert.Equal(t, ".", cfg.Export.OutputDir)
	assert.Equal(t, "it", cfg.Export.Language)
	assert.True(t, cfg.Export.FindDomains)
	assert.True(t, cfg.Export.SplitNames)
	assert.True(t, cfg.Notify.Desktop)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RatePerSecond)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  path: /var/lib/leads/leads.db
gemini:
  model: gemini-2.5-pro
export:
  language: en
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/leads/leads.db", cfg.Store.Path)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "en", cfg.Export.Language)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Server.RatePerSecond)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
gemini:
  model: gemini-2.5-pro
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADS_GEMINI_MODEL", "gemini-2.5-flash-lite")
	t.Setenv("LEADS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LEADS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Path = "leads.db"
	cfg.Gemini.Model = "gemini-2.5-flash"
	cfg.Export.OutputDir = "."
	cfg.Server.Port = 8080
	cfg.Server.RatePerSecond = 10
	return cfg
}

func TestValidateExport_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = "AIza-test-key"
	cfg.Export.FindDomains = true

	assert.NoError(t, cfg.Validate("export"))
}

func TestValidateExport_MissingKeyWithEnrichment(t *testing.T) {
	cfg := validDefaults()
	cfg.Export.FindDomains = true

	err := cfg.Validate("export")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestValidateExport_NoKeyNeededWithoutEnrichment(t *testing.T) {
	cfg := validDefaults()
	cfg.Export.FindDomains = false
	cfg.Export.SplitNames = false

	assert.NoError(t, cfg.Validate("export"))
}

func TestValidateExport_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("export")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
	assert.Contains(t, err.Error(), "gemini.model is required")
	assert.Contains(t, err.Error(), "export.output_dir is required")
}

func TestValidateLocal(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("local"))

	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate("local"))
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
