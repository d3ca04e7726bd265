package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nrebound/trader/internal/market"
)

// Prediction is the scoring-model verdict for a symbol. Score runs 0-100.
type Prediction struct {
	Score  float64        `json:"score"`
	Advice string         `json:"advice"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Scorer gates paper-broker entries. The model behind it is interchangeable;
// the broker treats any error as a zero score, which conservatively rejects
// the entry.
type Scorer interface {
	Predict(ctx context.Context, symbol string) (Prediction, error)
}

// HTTPScorer calls an external scoring service over HTTP. The service wraps
// whatever model is current; this client only knows the request shape.
type HTTPScorer struct {
	url    string
	client *http.Client
}

func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Symbol string `json:"symbol"`
}

func (s *HTTPScorer) Predict(ctx context.Context, symbol string) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Symbol: symbol})
	if err != nil {
		return Prediction{}, market.NewScorerError(symbol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, market.NewScorerError(symbol, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Prediction{}, market.NewScorerError(symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Prediction{}, market.NewScorerError(symbol,
			fmt.Errorf("scorer HTTP %d: %s", resp.StatusCode, string(b)))
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return Prediction{}, market.NewScorerError(symbol, err)
	}
	if pred.Score < 0 || pred.Score > 100 {
		return Prediction{}, market.NewScorerError(symbol,
			fmt.Errorf("score %.1f out of range", pred.Score))
	}
	return pred, nil
}

// Fixed returns the same score for every symbol. Stands in when no scoring
// service is configured, mirroring the flat fallback score the strategy was
// tuned with.
type Fixed struct {
	Score  float64
	Advice string
}

func (f Fixed) Predict(ctx context.Context, symbol string) (Prediction, error) {
	return Prediction{Score: f.Score, Advice: f.Advice}, nil
}
