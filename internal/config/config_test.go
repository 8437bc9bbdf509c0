package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/internal/volatility"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "TELEGRAM_CHAT_ID", "OPENAI_API_KEY",
		"PORT", "DB_PATH", "DATA_SOURCE", "PRICES_DIR", "HTTPS_PROXY", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, volatility.DefaultParams(), p)
	assert.Equal(t, SourceCSV, cfg.DataSource.Kind)
	assert.Equal(t, "data/volbot.db", cfg.Database.Path)
	assert.Equal(t, "9095", cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.DataSource.CacheMaxAge)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
analysis:
  underlying: QQQ
  vol_index: ^VXN
  rolling_window_days: 10
  lag_days: 0
  start: "2010-01-04"
data_source:
  kind: Yahoo
  cache: true
  cache_max_age: 30m
telegram:
  chat_id: 100
`)
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("PORT", "8080")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, "QQQ", p.Underlying)
	assert.Equal(t, "^VXN", p.VolIndex)
	assert.Equal(t, 10, p.RollingWindow)
	assert.Equal(t, 0, p.Lag)
	assert.Equal(t, time.Date(2010, 1, 4, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, SourceYahoo, cfg.DataSource.Kind)
	assert.Equal(t, 30*time.Minute, cfg.DataSource.CacheMaxAge)
	assert.Equal(t, int64(-1001), cfg.Telegram.ChatID)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_BadInput(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "analysis: [unclosed"))
	assert.True(t, errors.Is(err, volatility.ErrConfig))

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, volatility.ErrConfig))
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"window below two", func(c *Config) { c.Analysis.RollingWindow = 1 }},
		{"negative lag", func(c *Config) { c.Analysis.Lag = -1 }},
		{"bad start", func(c *Config) { c.Analysis.Start = "1995/01/01" }},
		{"unknown source", func(c *Config) { c.DataSource.Kind = "bloomberg" }},
		{"cache without db", func(c *Config) { c.DataSource.Cache = true; c.Database.Path = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			assert.True(t, errors.Is(cfg.Validate(), volatility.ErrConfig))
		})
	}
}

func TestValidateBot(t *testing.T) {
	cfg := defaults()
	assert.True(t, errors.Is(cfg.ValidateBot(), volatility.ErrConfig))

	cfg.Telegram.BotToken = "123:abc"
	assert.True(t, errors.Is(cfg.ValidateBot(), volatility.ErrConfig))

	cfg.Telegram.WebhookURL = "https://example.org/telegram/webhook"
	assert.NoError(t, cfg.ValidateBot())
}
