package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrebound/trader/internal/market"
)

func klineServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
}

func TestFetchHistoryParsesKlines(t *testing.T) {
	srv := klineServer(t, `{
		"code": 0,
		"data": {
			"sh600519": {
				"qfqday": [
					["2026-08-26", "10.00", "10.20", "10.30", "9.90", "120000"],
					["2026-08-27", "10.20", "10.50", "10.60", "10.10", 135000],
					["2026-08-28", "10.50", "10.40", "10.55", "10.30", "98000"]
				]
			}
		}
	}`)
	defer srv.Close()

	h := NewTencentHistory(TencentHistoryConfig{URLTemplate: srv.URL + "/?param=%s", RatePerSec: 1000})
	bars, err := h.FetchHistory(context.Background(), "600519")
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "2026-08-26", bars[0].Date.Format("2006-01-02"))
	assert.Equal(t, 10.00, bars[0].Open)
	assert.Equal(t, 10.20, bars[0].Close)
	assert.Equal(t, 10.30, bars[0].High)
	assert.Equal(t, 9.90, bars[0].Low)
	assert.Equal(t, 135000.0, bars[1].Volume, "numeric volume fields are accepted")
}

func TestFetchHistoryFallsBackToUnadjustedRows(t *testing.T) {
	srv := klineServer(t, `{
		"code": 0,
		"data": {
			"sz000001": {
				"day": [["2026-08-28", "11.00", "11.10", "11.20", "10.90", "50000"]]
			}
		}
	}`)
	defer srv.Close()

	h := NewTencentHistory(TencentHistoryConfig{URLTemplate: srv.URL + "/?param=%s", RatePerSec: 1000})
	bars, err := h.FetchHistory(context.Background(), "000001")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestFetchHistorySymbolMissing(t *testing.T) {
	srv := klineServer(t, `{"code": 0, "data": {}}`)
	defer srv.Close()

	h := NewTencentHistory(TencentHistoryConfig{URLTemplate: srv.URL + "/?param=%s", RatePerSec: 1000})
	_, err := h.FetchHistory(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, market.IsType(err, market.ErrDataUnavailable))
}

func TestFetchHistoryRejectsOutOfOrderBars(t *testing.T) {
	srv := klineServer(t, `{
		"code": 0,
		"data": {
			"sh600519": {
				"qfqday": [
					["2026-08-28", "10.50", "10.40", "10.55", "10.30", "98000"],
					["2026-08-26", "10.00", "10.20", "10.30", "9.90", "120000"]
				]
			}
		}
	}`)
	defer srv.Close()

	h := NewTencentHistory(TencentHistoryConfig{URLTemplate: srv.URL + "/?param=%s", RatePerSec: 1000})
	_, err := h.FetchHistory(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, market.IsType(err, market.ErrParseFailure))
}
