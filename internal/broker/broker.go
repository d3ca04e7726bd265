package broker

import (
	"fmt"
	"math"
	"time"

	"github.com/jpillora/backoff"

	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/control"
	"github.com/nrebound/trader/internal/ledger"
	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
	"github.com/nrebound/trader/internal/portfolio"
	"github.com/nrebound/trader/internal/scorer"
	"github.com/nrebound/trader/internal/watchlist"
)

const dateLayout = "2006-01-02"

// Exit reasons, in check order: take-profit wins over stop-loss wins over the
// time-based exit, and at most one fires per cycle.
const (
	ExitTookProfit = "take_profit"
	ExitStoppedOut = "stop_loss"
	ExitTimedOut   = "timed_out"
)

// Broker is the paper-trading state machine. Per symbol it moves
// watching -> holding -> closed, with the scorer gating the first edge and
// the exit rules the second. It is the sole writer of the portfolio snapshot
// and the trade ledger.
type Broker struct {
	quotes market.QuoteSource
	score  scorer.Scorer
	pf     *portfolio.Manager
	book   *ledger.Ledger
	watch  *watchlist.Watchlist
	checks watchlist.CheckView
	cfg    config.Broker

	retry   *backoff.Backoff
	now     func() time.Time
	sleeper func(time.Duration)
}

func New(quotes market.QuoteSource, score scorer.Scorer, pf *portfolio.Manager,
	book *ledger.Ledger, watch *watchlist.Watchlist, cfg config.Broker) *Broker {
	return &Broker{
		quotes: quotes,
		score:  score,
		pf:     pf,
		book:   book,
		watch:  watch,
		checks: watch.CheckView(),
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

// Run polls until stopped. Data failures back off and continue; a
// persistence failure halts the loop, because trading on without an audit
// trail is worse than not trading.
func (b *Broker) Run(ctrl *control.Controller) error {
	observ.Log("broker_started", map[string]any{
		"watch": b.watch.Len(), "capital": b.pf.Capital(),
	})
	interval := time.Duration(b.cfg.IntervalSec) * time.Second
	idle := time.Duration(b.cfg.IdleIntervalSec) * time.Second

	for {
		if ctrl.Stopped() {
			observ.Log("broker_stopped", nil)
			return nil
		}

		now := b.now()
		if !InSession(now) {
			b.sleeper(IdleInterval(now, idle))
			continue
		}

		if err := b.Cycle(ctrl, now); err != nil {
			if market.IsType(err, market.ErrPersistence) {
				observ.Error("broker_halted", err, nil)
				return err
			}
			d := b.retry.Duration()
			observ.Error("broker_cycle_failed", err, map[string]any{"backoff_ms": d.Milliseconds()})
			b.sleeper(d)
			continue
		}
		b.retry.Reset()
		b.sleeper(interval)
	}
}

// Cycle runs one full evaluation pass: exits for held positions first, then
// entries for watched symbols.
func (b *Broker) Cycle(ctrl *control.Controller, now time.Time) error {
	positions := b.pf.Positions()

	codes := make([]string, 0, len(positions)+b.watch.Len())
	seen := map[string]bool{}
	for sym := range positions {
		codes = append(codes, sym)
		seen[sym] = true
	}
	for _, sym := range b.watch.Symbols() {
		if !seen[sym] {
			codes = append(codes, sym)
		}
	}
	if len(codes) == 0 {
		return market.NewDataUnavailableError("", "nothing to watch or hold", nil)
	}

	quotes, err := b.quotes.FetchBatch(ctrl.Context(), codes)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		return market.NewDataUnavailableError("", "empty quote batch", nil)
	}

	if err := b.evaluateExits(positions, quotes, now); err != nil {
		return err
	}
	if err := b.evaluateEntries(ctrl, quotes, now); err != nil {
		return err
	}

	observ.Log("broker_status", map[string]any{
		"open": b.pf.OpenCount(), "watch": b.watch.Len(),
	})
	observ.IncCounter("broker_cycles_total", nil)
	return nil
}

// evaluateExits applies the exit rules to every open position. A position
// opened today is locked until the next session day.
func (b *Broker) evaluateExits(positions map[string]portfolio.Position, quotes map[string]market.Quote, now time.Time) error {
	today := now.Format(dateLayout)
	for sym, pos := range positions {
		if pos.BuyDate == today {
			continue // next-day settlement, no same-day exit
		}
		q, ok := quotes[sym]
		if !ok {
			continue
		}

		profitPct := (q.Price - pos.BuyPrice) / pos.BuyPrice
		holdDays := holdingDays(pos.BuyDate, now)

		var reason string
		switch {
		case profitPct >= b.cfg.TakeProfitPct:
			reason = ExitTookProfit
		case profitPct <= b.cfg.StopLossPct:
			reason = ExitStoppedOut
		case holdDays >= b.cfg.MaxHoldDays:
			reason = ExitTimedOut
		default:
			continue
		}

		if err := b.sell(pos, q.Price, profitPct, reason, now); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) sell(pos portfolio.Position, price, profitPct float64, reason string, now time.Time) error {
	closed, err := b.pf.Close(pos.Symbol)
	if err != nil {
		if market.IsType(err, market.ErrPersistence) {
			return err
		}
		return market.NewPersistenceError(pos.Symbol, err)
	}
	profit := (price - closed.BuyPrice) * float64(closed.Shares)
	if err := b.book.Append(ledger.TradeRecord{
		Time:   now,
		Action: "SELL",
		Symbol: closed.Symbol,
		Name:   closed.Name,
		Price:  price,
		Shares: closed.Shares,
		Note:   fmt.Sprintf("%s(%.1f%%) profit:%.2f", reason, profitPct*100, profit),
	}); err != nil {
		return err
	}
	observ.Log("position_closed", map[string]any{
		"symbol": closed.Symbol, "reason": reason,
		"profit": profit, "profit_pct": profitPct * 100,
	})
	observ.IncCounter("broker_sells_total", map[string]string{"reason": reason})
	return nil
}

// evaluateEntries scores watched symbols whose move sits inside the entry
// window and opens a position when the gated score clears the threshold.
func (b *Broker) evaluateEntries(ctrl *control.Controller, quotes map[string]market.Quote, now time.Time) error {
	debounce := time.Duration(b.cfg.DebounceSec) * time.Second

	for _, sym := range b.watch.Symbols() {
		if b.pf.Has(sym) {
			continue
		}
		q, ok := quotes[sym]
		if !ok {
			continue
		}
		if q.PctChange < b.cfg.EntryFloorPct || q.PctChange > b.cfg.EntryCeilingPct {
			continue
		}
		lastCheck, _ := b.checks.LastCheckAt(sym)
		if now.Sub(lastCheck) <= debounce {
			continue
		}

		pred, err := b.score.Predict(ctrl.Context(), sym)
		if err != nil {
			observ.Error("scorer_failed", err, map[string]any{"symbol": sym})
			pred = scorer.Prediction{Score: 0, Advice: "analysis failed"}
		}
		finalScore := pred.Score / 100 * b.cfg.AICoefficient
		observ.Log("entry_scored", map[string]any{
			"symbol": sym, "pct_change": q.PctChange,
			"score": pred.Score, "final_score": finalScore, "advice": pred.Advice,
		})

		if finalScore < b.cfg.BuyThreshold {
			b.checks.MarkChecked(sym, now)
			continue
		}

		bought, err := b.buy(sym, q, pred.Score, now)
		if err != nil {
			return err
		}
		if bought || *b.cfg.DebounceOnCapitalReject {
			b.checks.MarkChecked(sym, now)
		}
	}
	return nil
}

// buy sizes and opens the position. Returns false when capital is
// insufficient, which is a rejection, not an error.
func (b *Broker) buy(sym string, q market.Quote, score float64, now time.Time) (bool, error) {
	shares := int(math.Floor(b.cfg.SinglePositionCash/q.Price/float64(b.cfg.LotSize))) * b.cfg.LotSize
	if shares == 0 {
		shares = b.cfg.LotSize // minimum one lot
	}
	cost := float64(shares) * q.Price

	if b.pf.TotalCost()+cost > b.pf.Capital() {
		observ.Log("entry_rejected_capital", map[string]any{
			"symbol": sym, "cost": cost, "used": b.pf.TotalCost(), "capital": b.pf.Capital(),
		})
		return false, nil
	}

	pos := portfolio.Position{
		Symbol:   sym,
		Name:     q.Name,
		BuyDate:  now.Format(dateLayout),
		BuyPrice: q.Price,
		Shares:   shares,
		Cost:     cost,
	}
	if err := b.pf.Open(pos); err != nil {
		if market.IsType(err, market.ErrPersistence) {
			return false, err
		}
		// invariant rejection (already held, capital race), not a write failure
		observ.Error("entry_rejected", err, map[string]any{"symbol": sym})
		return false, nil
	}
	if err := b.book.Append(ledger.TradeRecord{
		Time:   now,
		Action: "BUY",
		Symbol: sym,
		Name:   q.Name,
		Price:  q.Price,
		Shares: shares,
		Note:   fmt.Sprintf("ai_score:%.1f", score),
	}); err != nil {
		return false, err
	}
	observ.Log("position_opened", map[string]any{
		"symbol": sym, "price": q.Price, "shares": shares, "cost": cost,
	})
	observ.IncCounter("broker_buys_total", nil)
	return true, nil
}

// holdingDays counts whole days between the buy date and now.
func holdingDays(buyDate string, now time.Time) int {
	bought, err := time.ParseInLocation(dateLayout, buyDate, now.Location())
	if err != nil {
		return 0
	}
	return int(now.Sub(bought).Hours() / 24)
}
