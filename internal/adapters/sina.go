package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
)

// SinaQuotes implements market.QuoteSource against the Sina HQ endpoint.
// The provider answers batches of up to ~80 symbols per call, responds in
// GBK, and requires a finance.sina.com.cn Referer.
type SinaQuotes struct {
	baseURL     string
	chunkSize   int
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

type SinaQuotesConfig struct {
	BaseURL    string  // e.g. http://hq.sinajs.cn/list=
	ChunkSize  int     // provider batch-size limit
	TimeoutSec int
	RatePerSec float64
}

func NewSinaQuotes(cfg SinaQuotesConfig) *SinaQuotes {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://hq.sinajs.cn/list="
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 80
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 5
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	return &SinaQuotes{
		baseURL:     cfg.BaseURL,
		chunkSize:   cfg.ChunkSize,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

// FetchBatch returns quotes for as many of the requested codes as the
// provider answers for. A chunk that fails entirely is logged and skipped;
// the rest of the batch still comes back, so one bad call never empties a
// polling cycle.
func (s *SinaQuotes) FetchBatch(ctx context.Context, codes []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(codes))
	for start := 0; start < len(codes); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(codes) {
			end = len(codes)
		}
		chunk := codes[start:end]
		if err := s.fetchChunk(ctx, chunk, out); err != nil {
			observ.Error("quote_chunk_failed", err, map[string]any{
				"chunk_size": len(chunk),
			})
		}
	}
	return out, nil
}

// Quote is re-exported for convenience of adapter callers.
type Quote = market.Quote

func (s *SinaQuotes) fetchChunk(ctx context.Context, codes []string, out map[string]Quote) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return market.NewDataUnavailableError("", "rate limit wait cancelled", err)
	}

	providerCodes := make([]string, len(codes))
	reverse := make(map[string]string, len(codes))
	for i, c := range codes {
		pc := market.ExchangeCode(c)
		providerCodes[i] = pc
		reverse[pc] = c
	}

	url := s.baseURL + strings.Join(providerCodes, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.NewDataUnavailableError("", "bad request", err)
	}
	req.Header.Set("Referer", "https://finance.sina.com.cn")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return market.NewDataUnavailableError("", "quote fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.NewDataUnavailableError("", fmt.Sprintf("quote HTTP %d", resp.StatusCode), nil)
	}

	// Responses are GBK; symbol names are unreadable without decoding.
	body, err := io.ReadAll(transform.NewReader(resp.Body, simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return market.NewParseError("", "decode failed", err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		q, providerCode, ok := ParseHQLine(line)
		if !ok {
			continue
		}
		if code, known := reverse[providerCode]; known {
			q.Symbol = code
			out[code] = q
		}
	}
	return nil
}

// ParseHQLine parses one `var hq_str_sh600519="name,open,prevclose,price,..."`
// line of an HQ response. Lines for suspended or unknown symbols are short or
// empty and are dropped, not errors: the batch contract tolerates holes.
func ParseHQLine(line string) (Quote, string, bool) {
	eq := strings.Index(line, `="`)
	if eq < 0 {
		return Quote{}, "", false
	}
	head := line[:eq]
	providerCode := head[strings.LastIndex(head, "_")+1:]

	payload := strings.TrimSuffix(strings.TrimSpace(line[eq+2:]), `";`)
	if payload == "" {
		return Quote{}, "", false
	}
	fields := strings.Split(payload, ",")
	if len(fields) < 4 {
		return Quote{}, "", false
	}

	prevClose, err1 := strconv.ParseFloat(fields[2], 64)
	price, err2 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil || prevClose == 0 {
		return Quote{}, "", false
	}

	return Quote{
		Name:      fields[0],
		Price:     price,
		PrevClose: prevClose,
		PctChange: (price - prevClose) / prevClose * 100,
	}, providerCode, true
}
