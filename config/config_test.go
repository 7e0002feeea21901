package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeYAML(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, 5.0, cfg.API.RatePerSec)
	assert.False(t, cfg.API.MockMode)
	assert.Equal(t, 100000.0, cfg.Backtest.Capital)
	assert.Equal(t, "1d", cfg.Backtest.Timeframe)
	assert.Equal(t, "sharpe", cfg.Backtest.ScoringMetric)
	assert.Equal(t, "D", cfg.Backtest.StatsFreq)
	assert.Equal(t, 5, cfg.Backtest.OOSTopN)
	assert.Equal(t, 250, cfg.Simulator.Days)
	assert.Equal(t, "stratlab.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8000", cfg.SimEngine.Addr)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeYAML(t, `
api:
  base_url: http://engine:9000/api/v1/
  mock_mode: true
backtest:
  capital: 250000
  oos_top_n: 3
simulator:
  seed: 42
  derive_ratios: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://engine:9000/api/v1", cfg.API.BaseURL, "trailing slash trimmed")
	assert.True(t, cfg.API.MockMode)
	assert.Equal(t, 250000.0, cfg.Backtest.Capital)
	assert.Equal(t, 3, cfg.Backtest.OOSTopN)
	assert.Equal(t, uint64(42), cfg.Simulator.Seed)
	assert.True(t, cfg.Simulator.DeriveRatios)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STRATLAB_API_BASE", "http://override:1234/api")
	t.Setenv("STRATLAB_MOCK_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(writeYAML(t, "api:\n  base_url: http://yaml/api\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://override:1234/api", cfg.API.BaseURL)
	assert.True(t, cfg.API.MockMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_BadMockMode(t *testing.T) {
	t.Setenv("STRATLAB_MOCK_MODE", "maybe")
	_, err := Load(writeYAML(t, "{}\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
}
