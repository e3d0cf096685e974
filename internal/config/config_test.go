package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY", "PORT", "DB_PATH",
		"HISTORY_BACKEND", "HISTORY_FILE", "HISTORY_SIZE", "PRICE_SOURCE", "PRICE_CSV",
		"VAR_WINDOW", "VAR_CONFIDENCE", "VAR_PORTFOLIO_VALUE", "VAR_SIMULATIONS",
		"CHART_TZ", "LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.HistoryBackend)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, 30, cfg.Window)
	assert.Equal(t, 95.0, cfg.Confidence)
	assert.Equal(t, 100000.0, cfg.PortfolioValue)
	assert.Equal(t, 10000, cfg.Simulations)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://example.org/telegram/webhook")
	t.Setenv("HISTORY_BACKEND", "CSV")
	t.Setenv("HISTORY_SIZE", "5")
	t.Setenv("VAR_CONFIDENCE", "0.99")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("VAR_WINDOW", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, BackendCSV, cfg.HistoryBackend)
	assert.Equal(t, 5, cfg.HistorySize)
	assert.Equal(t, 0.99, cfg.Confidence)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 30, cfg.Window, "unparsable values fall back to the default")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"token without webhook", func(c *Config) { c.TelegramToken = "x" }, "WEBHOOK_PUBLIC_URL"},
		{"unknown backend", func(c *Config) { c.HistoryBackend = "redis" }, "HISTORY_BACKEND"},
		{"zero history", func(c *Config) { c.HistorySize = 0 }, "HISTORY_SIZE"},
		{"unknown source", func(c *Config) { c.PriceSource = "bloomberg" }, "PRICE_SOURCE"},
		{"zero window", func(c *Config) { c.Window = 0 }, "VAR_WINDOW"},
		{"confidence 100", func(c *Config) { c.Confidence = 100 }, "VAR_CONFIDENCE"},
		{"negative value", func(c *Config) { c.PortfolioValue = -5 }, "VAR_PORTFOLIO_VALUE"},
		{"no simulations", func(c *Config) { c.Simulations = 0 }, "VAR_SIMULATIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
