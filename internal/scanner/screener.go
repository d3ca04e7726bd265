package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/signalstore"
)

// Screener fans Scan out over the whole symbol universe with a bounded worker
// pool and flushes hits to the signal store as it goes.
type Screener struct {
	history market.HistorySource
	store   *signalstore.Store
	cfg     config.Screener

	mu      sync.Mutex // guards results and counters; workers never touch them directly
	results []market.Signal
	seen    map[string]bool
	scanned int
	hits    int
}

func NewScreener(history market.HistorySource, store *signalstore.Store, cfg config.Screener) *Screener {
	return &Screener{
		history: history,
		store:   store,
		cfg:     cfg,
		seen:    map[string]bool{},
	}
}

// Run scans every symbol in the universe and returns the final sorted signal
// set. Per-symbol failures (no data, short history, parse errors) are counted
// and skipped, never fatal; only a signal-store write error aborts the run,
// because a scan that cannot persist results is worthless.
func (s *Screener) Run(ctx context.Context, universe []market.SymbolInfo) ([]market.Signal, error) {
	runDate := time.Now()
	s.store.GC(time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)

	total := len(universe)
	observ.Log("scan_started", map[string]any{"total": total, "workers": s.cfg.Workers})

	jobs := make(chan market.SymbolInfo)
	var wg sync.WaitGroup
	var writeErr error
	var writeErrOnce sync.Once

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				sig := s.scanOne(ctx, sym)
				if flushErr := s.collect(runDate, sym, sig, total); flushErr != nil {
					writeErrOnce.Do(func() { writeErr = flushErr })
				}
			}
		}()
	}

	for _, sym := range universe {
		if ctx.Err() != nil {
			break
		}
		jobs <- sym
	}
	close(jobs)
	wg.Wait()

	if writeErr != nil {
		return nil, writeErr
	}

	// Final write re-sorts and rewrites the complete set.
	s.mu.Lock()
	final := make([]market.Signal, len(s.results))
	copy(final, s.results)
	s.mu.Unlock()
	if err := s.store.Write(runDate, final); err != nil {
		return nil, err
	}

	observ.Log("scan_finished", map[string]any{
		"scanned": s.scanned, "hits": s.hits, "total": total,
	})
	return final, nil
}

func (s *Screener) scanOne(ctx context.Context, sym market.SymbolInfo) *market.Signal {
	bars, err := s.history.FetchHistory(ctx, sym.Code)
	if err != nil {
		observ.IncCounter("scan_skips_total", map[string]string{"reason": skipReason(err)})
		return nil
	}
	sig, err := Scan(sym.Code, sym.Name, bars, s.cfg)
	if err != nil {
		observ.IncCounter("scan_skips_total", map[string]string{"reason": skipReason(err)})
		return nil
	}
	return sig
}

// collect is the single-writer funnel for scan results: flush batching,
// progress counters, and symbol dedup all live behind one lock.
func (s *Screener) collect(runDate time.Time, sym market.SymbolInfo, sig *market.Signal, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanned++
	observ.SetGauge("scan_progress", float64(s.scanned)/float64(total), nil)
	if s.scanned%50 == 0 {
		observ.Log("scan_progress", map[string]any{
			"scanned": s.scanned, "hits": s.hits, "total": total,
		})
	}

	if sig == nil || s.seen[sig.Symbol] {
		return nil
	}
	s.seen[sig.Symbol] = true
	s.results = append(s.results, *sig)
	s.hits++
	observ.Log("scan_hit", map[string]any{
		"symbol": sig.Symbol, "name": sig.Name, "pullback_pct": sig.PullbackPct,
	})

	if s.hits%s.cfg.FlushEvery == 0 {
		flush := make([]market.Signal, len(s.results))
		copy(flush, s.results)
		if err := s.store.Write(runDate, flush); err != nil {
			observ.Error("signalset_write_failed", err, map[string]any{"hits": s.hits})
			return err
		}
	}
	return nil
}

func skipReason(err error) string {
	if de, ok := err.(*market.DataError); ok {
		return de.Type
	}
	return "unknown"
}
