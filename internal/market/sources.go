package market

import "context"

// HistorySource supplies daily OHLCV history for a single symbol, ascending
// by date. Implementations return a DataError with type data_unavailable when
// the symbol has no history or the network call fails.
type HistorySource interface {
	FetchHistory(ctx context.Context, code string) ([]PriceBar, error)
}

// QuoteSource supplies batched real-time quotes. Partial responses are
// expected: symbols the provider does not answer for are silently absent from
// the result map, never an error for the whole batch.
type QuoteSource interface {
	FetchBatch(ctx context.Context, codes []string) (map[string]Quote, error)
}

// UniverseSource supplies the list of scannable symbols.
type UniverseSource interface {
	ListSymbols(ctx context.Context) ([]SymbolInfo, error)
}
