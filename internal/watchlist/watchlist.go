package watchlist

import (
	"sync"
	"time"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/signalstore"
)

// Entry is one watched symbol. The set of entries is fixed after Load; only
// the two timestamps mutate, and each has exactly one writer: the radar owns
// lastAlertAt, the paper broker owns lastCheckAt. The split views below make
// that ownership part of the type instead of a convention.
type Entry struct {
	Symbol string
	Name   string
	Signal market.Signal

	alertMu     sync.Mutex
	lastAlertAt time.Time

	checkMu     sync.Mutex
	lastCheckAt time.Time
}

// Watchlist is loaded once at process start from the newest signal set.
// There is no hot reload; restart to pick up a fresh scan.
type Watchlist struct {
	entries map[string]*Entry
	order   []string // signal-set order, pullback descending
}

// Load reads the newest signal set and builds the watch registry. Symbols
// whose range position exceeds ceiling are dropped as already too high; the
// default ceiling of 1.0 keeps everything.
func Load(store *signalstore.Store, ceiling float64) (*Watchlist, error) {
	signals, mtime, err := store.LoadLatest()
	if err != nil {
		return nil, err
	}
	w := FromSignals(signals, ceiling)
	observ.Log("watchlist_loaded", map[string]any{
		"symbols":    w.Len(),
		"skipped":    len(signals) - w.Len(),
		"set_age_hr": time.Since(mtime).Hours(),
	})
	return w, nil
}

// FromSignals builds the registry straight from a signal set.
func FromSignals(signals []market.Signal, ceiling float64) *Watchlist {
	w := &Watchlist{entries: map[string]*Entry{}}
	for _, sig := range signals {
		if sig.RangePositionPct > ceiling {
			continue
		}
		if _, dup := w.entries[sig.Symbol]; dup {
			continue
		}
		w.entries[sig.Symbol] = &Entry{Symbol: sig.Symbol, Name: sig.Name, Signal: sig}
		w.order = append(w.order, sig.Symbol)
	}
	return w
}

func (w *Watchlist) Len() int { return len(w.entries) }

// Symbols returns the watched symbols in signal-set order.
func (w *Watchlist) Symbols() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

func (w *Watchlist) Get(symbol string) (*Entry, bool) {
	e, ok := w.entries[symbol]
	return e, ok
}

// AlertView exposes the radar-owned timestamp.
func (w *Watchlist) AlertView() AlertView { return AlertView{w} }

// CheckView exposes the broker-owned timestamp.
func (w *Watchlist) CheckView() CheckView { return CheckView{w} }

type AlertView struct{ w *Watchlist }

func (v AlertView) LastAlertAt(symbol string) (time.Time, bool) {
	e, ok := v.w.entries[symbol]
	if !ok {
		return time.Time{}, false
	}
	e.alertMu.Lock()
	defer e.alertMu.Unlock()
	return e.lastAlertAt, true
}

func (v AlertView) MarkAlerted(symbol string, at time.Time) {
	if e, ok := v.w.entries[symbol]; ok {
		e.alertMu.Lock()
		e.lastAlertAt = at
		e.alertMu.Unlock()
	}
}

type CheckView struct{ w *Watchlist }

func (v CheckView) LastCheckAt(symbol string) (time.Time, bool) {
	e, ok := v.w.entries[symbol]
	if !ok {
		return time.Time{}, false
	}
	e.checkMu.Lock()
	defer e.checkMu.Unlock()
	return e.lastCheckAt, true
}

func (v CheckView) MarkChecked(symbol string, at time.Time) {
	if e, ok := v.w.entries[symbol]; ok {
		e.checkMu.Lock()
		e.lastCheckAt = at
		e.checkMu.Unlock()
	}
}
