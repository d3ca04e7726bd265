package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
)

// CachedQuotes decorates a QuoteSource with a short-TTL cache so the radar
// and the paper broker polling the same watchlist do not each hit the
// provider for the same prints. At a 3s poll interval a 2s TTL halves the
// upstream call rate without serving a stale session print.
type CachedQuotes struct {
	source market.QuoteSource
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cachedQuote
}

type cachedQuote struct {
	quote    market.Quote
	cachedAt time.Time
}

func NewCachedQuotes(source market.QuoteSource, ttl time.Duration) *CachedQuotes {
	return &CachedQuotes{
		source:  source,
		ttl:     ttl,
		entries: map[string]cachedQuote{},
	}
}

// FetchBatch serves every requested code it has a fresh entry for and fetches
// only the remainder. A provider hole for a fetched code stays a hole; it is
// not papered over with an expired entry.
func (c *CachedQuotes) FetchBatch(ctx context.Context, codes []string) (map[string]market.Quote, error) {
	now := time.Now()
	out := make(map[string]market.Quote, len(codes))
	var missing []string

	c.mu.RLock()
	for _, code := range codes {
		if e, ok := c.entries[code]; ok && now.Sub(e.cachedAt) <= c.ttl {
			out[code] = e.quote
			continue
		}
		missing = append(missing, code)
	}
	c.mu.RUnlock()

	observ.IncCounterBy("quote_cache_hits_total", nil, int64(len(out)))
	observ.IncCounterBy("quote_cache_misses_total", nil, int64(len(missing)))

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.source.FetchBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for code, q := range fetched {
		c.entries[code] = cachedQuote{quote: q, cachedAt: now}
		out[code] = q
	}
	c.mu.Unlock()
	return out, nil
}
