package adapters

import (
	"context"

	"github.com/nrebound/trader/internal/market"
)

// MockQuotes serves canned quotes for tests and dry runs. Symbols absent
// from the map are silently missing from batches, like the real provider.
type MockQuotes struct {
	Quotes map[string]market.Quote
	Err    error
	Calls  int
}

func (m *MockQuotes) FetchBatch(ctx context.Context, codes []string) (map[string]market.Quote, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]market.Quote, len(codes))
	for _, c := range codes {
		if q, ok := m.Quotes[c]; ok {
			q.Symbol = c
			out[c] = q
		}
	}
	return out, nil
}

// MockHistory serves canned histories for tests.
type MockHistory struct {
	Bars map[string][]market.PriceBar
	Err  error
}

func (m *MockHistory) FetchHistory(ctx context.Context, code string) ([]market.PriceBar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars, ok := m.Bars[code]
	if !ok {
		return nil, market.NewDataUnavailableError(code, "no history", nil)
	}
	return bars, nil
}

// MockUniverse returns a fixed symbol list.
type MockUniverse struct {
	Symbols []market.SymbolInfo
}

func (m *MockUniverse) ListSymbols(ctx context.Context) ([]market.SymbolInfo, error) {
	return m.Symbols, nil
}
