package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nrebound/trader/internal/market"
)

const defaultKlineURL = "http://web.ifzq.gtimg.cn/appstock/app/fqkline/get?param=%s,day,,,320,qfq"

// TencentHistory implements market.HistorySource against the Tencent
// forward-adjusted daily kline endpoint.
type TencentHistory struct {
	urlTemplate string // one %s for the prefixed symbol
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

type TencentHistoryConfig struct {
	URLTemplate string
	TimeoutSec  int
	RatePerSec  float64
}

func NewTencentHistory(cfg TencentHistoryConfig) *TencentHistory {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = defaultKlineURL
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 5
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	return &TencentHistory{
		urlTemplate: cfg.URLTemplate,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

// klineResponse mirrors the relevant slice of the provider payload:
// data.<symbol>.qfqday (or .day) is a list of
// [date, open, close, high, low, volume] string arrays.
type klineResponse struct {
	Code int                           `json:"code"`
	Data map[string]map[string][][]any `json:"data"`
}

func (t *TencentHistory) FetchHistory(ctx context.Context, code string) ([]market.PriceBar, error) {
	if err := t.rateLimiter.Wait(ctx); err != nil {
		return nil, market.NewDataUnavailableError(code, "rate limit wait cancelled", err)
	}

	symbol := market.ExchangeCode(code)
	url := fmt.Sprintf(t.urlTemplate, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, market.NewDataUnavailableError(code, "bad request", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, market.NewDataUnavailableError(code, "history fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, market.NewDataUnavailableError(code, fmt.Sprintf("history HTTP %d", resp.StatusCode), nil)
	}

	var kr klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, market.NewParseError(code, "malformed kline response", err)
	}
	sym, ok := kr.Data[symbol]
	if !ok {
		return nil, market.NewDataUnavailableError(code, "symbol missing from response", nil)
	}
	rows := sym["qfqday"]
	if rows == nil {
		rows = sym["day"]
	}
	if len(rows) == 0 {
		return nil, market.NewDataUnavailableError(code, "no kline rows", nil)
	}

	bars := make([]market.PriceBar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseKlineRow(row)
		if err != nil {
			return nil, market.NewParseError(code, fmt.Sprintf("kline row %d", i), err)
		}
		bars = append(bars, bar)
	}
	if err := market.ValidateBars(bars); err != nil {
		return nil, market.NewParseError(code, "kline ordering", err)
	}
	return bars, nil
}

func parseKlineRow(row []any) (market.PriceBar, error) {
	var bar market.PriceBar
	if len(row) < 6 {
		return bar, fmt.Errorf("%d fields, need 6", len(row))
	}
	fields := make([]string, 6)
	for i := 0; i < 6; i++ {
		s, ok := row[i].(string)
		if !ok {
			// volume sometimes arrives as a JSON number
			if f, isNum := row[i].(float64); isNum {
				s = strconv.FormatFloat(f, 'f', -1, 64)
			} else {
				return bar, fmt.Errorf("field %d is %T", i, row[i])
			}
		}
		fields[i] = s
	}

	date, err := time.Parse("2006-01-02", fields[0])
	if err != nil {
		return bar, err
	}
	vals := make([]float64, 5)
	for i, s := range fields[1:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bar, err
		}
		vals[i] = v
	}
	return market.PriceBar{
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}
