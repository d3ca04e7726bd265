package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrebound/trader/internal/market"
)

func TestHTTPScorerPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol string `json:"symbol"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "600519", req.Symbol)
		fmt.Fprint(w, `{"score": 72.5, "advice": "buy the dip", "detail": {"model": "v2"}}`)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, 5*time.Second)
	pred, err := s.Predict(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, 72.5, pred.Score)
	assert.Equal(t, "buy the dip", pred.Advice)
}

func TestHTTPScorerRejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"score": 140, "advice": "??"}`)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, 5*time.Second)
	_, err := s.Predict(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, market.IsType(err, market.ErrScorer))
}

func TestHTTPScorerNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model reloading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPScorer(srv.URL, 5*time.Second)
	_, err := s.Predict(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, market.IsType(err, market.ErrScorer))
}

func TestFixedScorer(t *testing.T) {
	pred, err := Fixed{Score: 65, Advice: "flat"}.Predict(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 65.0, pred.Score)
	assert.Equal(t, "flat", pred.Advice)
}
