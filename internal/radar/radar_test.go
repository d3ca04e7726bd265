package radar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrebound/trader/internal/adapters"
	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/control"
	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/notify"
	"github.com/nrebound/trader/internal/watchlist"
)

type captureSink struct {
	batches   [][]notify.Alert
	shutdowns int
}

func (c *captureSink) Publish(batch []notify.Alert) { c.batches = append(c.batches, batch) }
func (c *captureSink) Shutdown()                    { c.shutdowns++ }

func testRadarConfig() config.Radar {
	return config.Radar{IntervalSec: 3, TriggerPct: 0.5, CooldownSec: 1800, RangePosCeiling: 1.0}
}

func newTestMonitor(t *testing.T, quotes *adapters.MockQuotes, syms ...string) (*Monitor, *captureSink) {
	t.Helper()
	var signals []market.Signal
	for _, s := range syms {
		signals = append(signals, market.Signal{Symbol: s, Name: "demo"})
	}
	sink := &captureSink{}
	m := New(quotes, watchlist.FromSignals(signals, 1.0), sink, testRadarConfig())
	return m, sink
}

func TestCyclePublishesTriggersSortedByMove(t *testing.T) {
	quotes := &adapters.MockQuotes{Quotes: map[string]market.Quote{
		"600519": {Name: "a", Price: 10.4, PctChange: 1.2},
		"000001": {Name: "b", Price: 11.1, PctChange: 3.4},
		"300750": {Name: "c", Price: 9.9, PctChange: 0.2}, // below trigger
	}}
	m, sink := newTestMonitor(t, quotes, "600519", "000001", "300750")
	m.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.Local) }

	ctrl := control.New(context.Background(), "")
	require.NoError(t, m.Cycle(ctrl))

	require.Len(t, sink.batches, 1)
	batch := sink.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "000001", batch[0].Symbol, "biggest move first")
	assert.Equal(t, "600519", batch[1].Symbol)
	assert.NotEmpty(t, batch[0].ID)
}

func TestCooldownSuppressesRepeatAlerts(t *testing.T) {
	quotes := &adapters.MockQuotes{Quotes: map[string]market.Quote{
		"600519": {Name: "a", Price: 10.4, PctChange: 1.2},
	}}
	m, sink := newTestMonitor(t, quotes, "600519")

	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.Local)
	now := base
	m.now = func() time.Time { return now }
	ctrl := control.New(context.Background(), "")

	require.NoError(t, m.Cycle(ctrl))
	require.Len(t, sink.batches, 1)

	// Still hot ten minutes later: suppressed.
	now = base.Add(10 * time.Minute)
	require.NoError(t, m.Cycle(ctrl))
	assert.Len(t, sink.batches, 1)

	// Past the cooldown the same symbol may alert again.
	now = base.Add(31 * time.Minute)
	require.NoError(t, m.Cycle(ctrl))
	assert.Len(t, sink.batches, 2)
}

func TestEmptyBatchIsATransientError(t *testing.T) {
	m, sink := newTestMonitor(t, &adapters.MockQuotes{Quotes: map[string]market.Quote{}}, "600519")
	ctrl := control.New(context.Background(), "")

	err := m.Cycle(ctrl)
	require.Error(t, err)
	assert.True(t, market.IsType(err, market.ErrDataUnavailable))
	assert.Empty(t, sink.batches)
}

func TestRunStopsOnCancelAndShutsDownSink(t *testing.T) {
	quotes := &adapters.MockQuotes{Quotes: map[string]market.Quote{
		"600519": {Name: "a", Price: 10.4, PctChange: 0.2},
	}}
	m, sink := newTestMonitor(t, quotes, "600519")
	m.sleeper = func(time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := control.New(ctx, "")

	done := make(chan struct{})
	go func() {
		m.Run(ctrl)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("radar loop did not stop on context cancel")
	}
	assert.Equal(t, 1, sink.shutdowns)
}
