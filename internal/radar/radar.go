package radar

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"

	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/control"
	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/notify"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/watchlist"
)

// Monitor is the intraday polling loop: batch-fetch quotes for every watched
// symbol, raise cooldown-deduped alerts for the ones that crossed the
// trigger threshold this cycle.
type Monitor struct {
	quotes  market.QuoteSource
	watch   *watchlist.Watchlist
	alerts  watchlist.AlertView
	sink    notify.Sink
	cfg     config.Radar
	retry   *backoff.Backoff
	now     func() time.Time
	sleeper func(time.Duration)
}

func New(quotes market.QuoteSource, watch *watchlist.Watchlist, sink notify.Sink, cfg config.Radar) *Monitor {
	return &Monitor{
		quotes: quotes,
		watch:  watch,
		alerts: watch.AlertView(),
		sink:   sink,
		cfg:    cfg,
		retry: &backoff.Backoff{
			Min:    time.Second,
			Max:    30 * time.Second,
			Jitter: true,
		},
		now:     time.Now,
		sleeper: time.Sleep,
	}
}

// Run polls until the controller reports a stop directive. Transient fetch
// failures back off and continue; nothing short of the stop directive ends
// the loop.
func (m *Monitor) Run(ctrl *control.Controller) {
	observ.Log("radar_started", map[string]any{
		"symbols": m.watch.Len(), "interval_sec": m.cfg.IntervalSec,
	})
	interval := time.Duration(m.cfg.IntervalSec) * time.Second

	for {
		if ctrl.Stopped() {
			break
		}
		if err := m.Cycle(ctrl); err != nil {
			d := m.retry.Duration()
			observ.Error("radar_cycle_failed", err, map[string]any{"backoff_ms": d.Milliseconds()})
			m.sleeper(d)
			continue
		}
		m.retry.Reset()
		m.sleeper(interval)
	}

	m.sink.Shutdown()
	observ.Log("radar_stopped", nil)
}

// Cycle runs one poll: fetch, threshold check, cooldown dedup, publish.
func (m *Monitor) Cycle(ctrl *control.Controller) error {
	quotes, err := m.quotes.FetchBatch(ctrl.Context(), m.watch.Symbols())
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		return market.NewDataUnavailableError("", "empty quote batch", nil)
	}

	now := m.now()
	cooldown := time.Duration(m.cfg.CooldownSec) * time.Second
	var batch []notify.Alert

	for symbol, q := range quotes {
		entry, watched := m.watch.Get(symbol)
		if !watched {
			continue
		}
		if q.PctChange <= m.cfg.TriggerPct {
			continue
		}
		lastAlert, _ := m.alerts.LastAlertAt(symbol)
		if now.Sub(lastAlert) <= cooldown {
			continue
		}
		batch = append(batch, notify.Alert{
			ID:        uuid.NewString(),
			Symbol:    symbol,
			Name:      entry.Name,
			Price:     q.Price,
			PctChange: q.PctChange,
			At:        now,
		})
		m.alerts.MarkAlerted(symbol, now)
	}

	if len(batch) > 0 {
		sort.Slice(batch, func(i, j int) bool {
			return batch[i].PctChange > batch[j].PctChange
		})
		m.sink.Publish(batch)
		observ.IncCounterBy("radar_alerts_total", nil, int64(len(batch)))
	}
	observ.IncCounter("radar_cycles_total", nil)
	return nil
}
