package scanner

import (
	"github.com/nrebound/trader/internal/config"
	"github.com/nrebound/trader/internal/market"
)

// Scan decides whether a symbol's daily history currently matches the
// "limit-up then non-breaking pullback" setup. It is a pure function of the
// input bars: no clock, no I/O, same bars in, same signal out.
//
// bars must be ascending by date. A history shorter than cfg.MinHistoryBars
// yields an insufficient_history error, which callers treat as "no signal",
// not as a scan failure.
func Scan(code, name string, bars []market.PriceBar, cfg config.Screener) (*market.Signal, error) {
	if len(bars) < cfg.MinHistoryBars {
		return nil, market.NewInsufficientHistoryError(code, len(bars), cfg.MinHistoryBars)
	}

	last := bars[len(bars)-1]

	// Position inside the trailing 60-bar high/low range. Symbols already
	// near the top of their range are not pullback candidates.
	rangeBars := bars[len(bars)-cfg.MinHistoryBars:]
	high := rangeBars[0].High
	low := rangeBars[0].Low
	for _, b := range rangeBars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	rangePos := 0.0
	if high != low {
		rangePos = (last.Close - low) / (high - low)
	}
	if rangePos > cfg.RangeCeiling {
		return nil, nil
	}

	// Limit-up bars inside the trailing lookback window, most recent first.
	// The window is lookback+1 bars so a change on the oldest window day can
	// still be computed against its previous close.
	window := cfg.LookbackDays + 1
	if window > len(bars) {
		window = len(bars)
	}
	start := len(bars) - window
	if start == 0 {
		start = 1 // need a previous close
	}
	var limitUps []int
	for i := len(bars) - 1; i >= start; i-- {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		change := (bars[i].Close - prev) / prev * 100
		if change > cfg.LimitUpPct {
			limitUps = append(limitUps, i)
		}
	}
	if len(limitUps) == 0 {
		return nil, nil
	}

	for _, zt := range limitUps {
		if zt == len(bars)-1 {
			continue // the limit-up itself is the latest bar, nothing to pull back from
		}
		ztBar := bars[zt]
		floor := ztBar.Open

		// Structure intact: every close since the limit-up day stays above
		// its opening price.
		broken := false
		for _, b := range bars[zt+1:] {
			if b.Close < floor {
				broken = true
				break
			}
		}
		if broken {
			continue
		}

		// Controlled pullback on the latest bar: short upper shadow and
		// volume shrunk relative to the limit-up day.
		if last.Close == 0 {
			continue
		}
		if (last.High-last.Close)/last.Close > cfg.UpperShadowLimit {
			continue
		}
		if last.Volume > ztBar.Volume*cfg.VolShrinkRatio {
			continue
		}

		pullback := (last.Close - ztBar.Close) / ztBar.Close * 100
		return &market.Signal{
			Symbol:           code,
			Name:             name,
			DetectionDate:    last.Date,
			LimitUpDate:      ztBar.Date,
			CurrentPrice:     last.Close,
			RangePositionPct: rangePos,
			PullbackPct:      pullback,
		}, nil
	}

	return nil, nil
}
