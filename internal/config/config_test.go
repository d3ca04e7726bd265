package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 60, c.Screener.MinHistoryBars)
	assert.Equal(t, 7, c.Screener.LookbackDays)
	assert.Equal(t, 9.5, c.Screener.LimitUpPct)
	assert.Equal(t, 0.6, c.Screener.RangeCeiling)
	assert.Equal(t, 4, c.Screener.Workers)

	assert.Equal(t, 3, c.Radar.IntervalSec)
	assert.Equal(t, 0.5, c.Radar.TriggerPct)
	assert.Equal(t, 1800, c.Radar.CooldownSec)
	assert.Equal(t, 1.0, c.Radar.RangePosCeiling)

	assert.Equal(t, 100000.0, c.Broker.TotalCapital)
	assert.Equal(t, 5000.0, c.Broker.SinglePositionCash)
	assert.Equal(t, 0.08, c.Broker.TakeProfitPct)
	assert.Equal(t, -0.05, c.Broker.StopLossPct)
	assert.Equal(t, 5, c.Broker.MaxHoldDays)
	assert.Equal(t, 1.1, c.Broker.AICoefficient)
	assert.Equal(t, 0.55, c.Broker.BuyThreshold)
	assert.Equal(t, 100, c.Broker.LotSize)
	require.NotNil(t, c.Broker.DebounceOnCapitalReject)
	assert.True(t, *c.Broker.DebounceOnCapitalReject)

	assert.Equal(t, 80, c.Data.QuoteChunkSize)
	assert.Equal(t, 2000, c.Data.QuoteCacheTTLMs)
	assert.Equal(t, "data", c.Data.Dir)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
screener:
  workers: 8
  limit_up_pct: 19.5
broker:
  total_capital: 50000
  debounce_on_capital_reject: false
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, c.Screener.Workers)
	assert.Equal(t, 19.5, c.Screener.LimitUpPct)
	assert.Equal(t, 50000.0, c.Broker.TotalCapital)
	require.NotNil(t, c.Broker.DebounceOnCapitalReject)
	assert.False(t, *c.Broker.DebounceOnCapitalReject)

	// Untouched keys still default.
	assert.Equal(t, 0.08, c.Broker.TakeProfitPct)
	assert.Equal(t, 60, c.Screener.MinHistoryBars)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, c.Screener.MinHistoryBars)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NREB_DATA_DIR", "/tmp/nreb")
	t.Setenv("NREB_SCORER_URL", "http://localhost:9000/predict")
	t.Setenv("NREB_TELEGRAM_CHAT", "12345")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/nreb", c.Data.Dir)
	assert.Equal(t, "http://localhost:9000/predict", c.Scorer.URL)
	assert.Equal(t, int64(12345), c.Notify.TelegramChatID)
}
