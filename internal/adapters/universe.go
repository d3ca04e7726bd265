package adapters

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nrebound/trader/internal/market"
	"github.com/nrebound/trader/internal/observ"
)

// Universe supplies the scannable symbol list, either from a remote JSON
// endpoint or a local two-column CSV (code,name). ST and delisting-flagged
// names are filtered out in both paths.
type Universe struct {
	url        string
	file       string
	httpClient *http.Client
}

func NewUniverse(url, file string, timeout time.Duration) *Universe {
	return &Universe{
		url:        url,
		file:       file,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (u *Universe) ListSymbols(ctx context.Context) ([]market.SymbolInfo, error) {
	if u.url != "" {
		symbols, err := u.fetchRemote(ctx)
		if err == nil {
			return symbols, nil
		}
		observ.Error("universe_remote_failed", err, map[string]any{"fallback": u.file})
	}
	if u.file != "" {
		return u.readFile()
	}
	return nil, market.NewDataUnavailableError("universe", "no universe source configured", nil)
}

func (u *Universe) fetchRemote(ctx context.Context) ([]market.SymbolInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, market.NewDataUnavailableError("universe", "bad request", err)
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, market.NewDataUnavailableError("universe", "fetch failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, market.NewDataUnavailableError("universe", resp.Status, nil)
	}

	var raw []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, market.NewParseError("universe", "malformed symbol list", err)
	}

	var out []market.SymbolInfo
	for _, r := range raw {
		if !Tradable(r.Name) {
			continue
		}
		out = append(out, market.SymbolInfo{Code: r.Code, Name: r.Name})
	}
	return out, nil
}

func (u *Universe) readFile() ([]market.SymbolInfo, error) {
	f, err := os.Open(u.file)
	if err != nil {
		return nil, market.NewDataUnavailableError("universe", "cannot open universe file", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, market.NewParseError("universe", "malformed universe file", err)
	}
	var out []market.SymbolInfo
	for _, row := range rows {
		if len(row) < 2 || row[0] == "code" {
			continue
		}
		if !Tradable(row[1]) {
			continue
		}
		out = append(out, market.SymbolInfo{Code: row[0], Name: row[1]})
	}
	return out, nil
}

// Tradable filters out names the screener never wants: ST-flagged (special
// treatment) and delisting-marked symbols.
func Tradable(name string) bool {
	return !strings.Contains(name, "ST") && !strings.Contains(name, "退")
}
