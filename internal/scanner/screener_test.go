package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrebound/trader/internal/adapters"
	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/signalstore"
)

// shallowPullback is a hit with a smaller drawdown than limitUpThenPullback,
// used to check result ordering.
func shallowPullback() []market.PriceBar {
	bars := flatBars(60, 10)
	bars = append(bars, nextBar(bars[len(bars)-1], 10, 11, 11.5, 10, 150000))
	bars = append(bars, nextBar(bars[len(bars)-1], 10.9, 10.9, 10.95, 10.8, 80000))
	bars = append(bars, nextBar(bars[len(bars)-1], 10.85, 10.8, 10.84, 10.7, 90000))
	return bars
}

func TestScreenerRunCollectsAndSorts(t *testing.T) {
	history := &adapters.MockHistory{Bars: map[string][]market.PriceBar{
		"600519": limitUpThenPullback(), // pullback ~ -6.36
		"000001": shallowPullback(),     // pullback ~ -1.82
		"300750": flatBars(10, 10),      // insufficient history, skipped
		// 002594 absent: data unavailable, skipped
	}}
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)

	cfg := testScreenerConfig()
	cfg.Workers = 2
	cfg.FlushEvery = 5
	cfg.RetentionDays = 3

	universe := []market.SymbolInfo{
		{Code: "600519", Name: "a"},
		{Code: "000001", Name: "b"},
		{Code: "300750", Name: "c"},
		{Code: "002594", Name: "d"},
	}

	final, err := NewScreener(history, store, cfg).Run(context.Background(), universe)
	require.NoError(t, err)
	require.Len(t, final, 2)

	// Sorted by pullback percent descending: the shallow pullback first.
	assert.Equal(t, "000001", final[0].Symbol)
	assert.Equal(t, "600519", final[1].Symbol)
	assert.Greater(t, final[0].PullbackPct, final[1].PullbackPct)

	// The persisted set matches the returned one.
	loaded, _, err := store.LoadLatest()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "000001", loaded[0].Symbol)
}

func TestScreenerRunEmptyUniverse(t *testing.T) {
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)

	cfg := testScreenerConfig()
	cfg.Workers = 1
	cfg.FlushEvery = 5

	final, err := NewScreener(&adapters.MockHistory{}, store, cfg).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, final)

	// Even an empty run leaves a (header-only) signal set behind.
	loaded, _, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestScreenerRunAllFailuresIsNotFatal(t *testing.T) {
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)

	cfg := testScreenerConfig()
	cfg.Workers = 2
	cfg.FlushEvery = 5

	history := &adapters.MockHistory{Bars: map[string][]market.PriceBar{}}
	universe := []market.SymbolInfo{{Code: "600519", Name: "a"}, {Code: "000001", Name: "b"}}

	final, err := NewScreener(history, store, cfg).Run(context.Background(), universe)
	require.NoError(t, err)
	assert.Empty(t, final)
}
