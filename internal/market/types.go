package market

import (
	"fmt"
	"strings"
	"time"
)

// PriceBar is one day of OHLCV history for a symbol. Sequences are ascending
// by date with unique dates; adapters are responsible for enforcing that.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is a real-time snapshot from the quote provider. Ephemeral, never
// persisted.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	PctChange float64 `json:"pct_change"` // (price - prevClose) / prevClose * 100
}

// Signal is one screener hit. Immutable once written to a signal set.
type Signal struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	DetectionDate    time.Time `json:"detection_date"` // date of the latest bar scanned
	LimitUpDate      time.Time `json:"limit_up_date"`  // the surviving limit-up bar
	CurrentPrice     float64   `json:"current_price"`
	RangePositionPct float64   `json:"range_position_pct"` // 0..1 within the trailing 60-bar range
	PullbackPct      float64   `json:"pullback_pct"`       // negative for a genuine pullback
}

// SymbolInfo is one entry of the scan universe.
type SymbolInfo struct {
	Code string
	Name string
}

// ExchangeCode returns the provider symbol with its exchange prefix.
// Shanghai codes start with 6, everything else trades in Shenzhen.
func ExchangeCode(code string) string {
	if strings.HasPrefix(code, "6") {
		return "sh" + code
	}
	return "sz" + code
}

// ValidateBars checks ordering and date uniqueness of a history sequence.
func ValidateBars(bars []PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return fmt.Errorf("bars out of order at index %d: %s then %s",
				i, bars[i-1].Date.Format("2006-01-02"), bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}
