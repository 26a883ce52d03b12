package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFrom(t, "")
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.LLM.ExtractionEnabled)
	assert.False(t, cfg.LLM.ScoringEnabled)
	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, 7, cfg.Enrich.ProfileTTLDays)
	assert.Equal(t, 50, cfg.Ingest.MaxEmailsPerRun)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg := loadFrom(t, `
store:
  driver: postgres
  database_url: postgres://localhost/leadmail
llm:
  extraction_enabled: true
scoring:
  domain_preferences:
    - fintech
    - cloud infrastructure
`)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.LLM.ExtractionEnabled)
	assert.Equal(t, []string{"fintech", "cloud infrastructure"}, cfg.Scoring.DomainPreferences)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEADMAIL_LOG_LEVEL", "debug")
	cfg := loadFrom(t, "")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
