package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradable(t *testing.T) {
	assert.True(t, Tradable("平安银行"))
	assert.False(t, Tradable("ST海马"))
	assert.False(t, Tradable("*ST康美"))
	assert.False(t, Tradable("退市大控"))
}

func TestListSymbolsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"code": "600519", "name": "贵州茅台"},
			{"code": "000001", "name": "平安银行"},
			{"code": "600001", "name": "ST示例"}
		]`)
	}))
	defer srv.Close()

	u := NewUniverse(srv.URL, "", 5*time.Second)
	symbols, err := u.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 2, "ST names are filtered out")
	assert.Equal(t, "600519", symbols[0].Code)
}

func TestListSymbolsFallsBackToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "universe.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"code,name\n600519,demo one\n000001,demo two\n300001,ST demo\n"), 0644))

	u := NewUniverse(srv.URL, path, 5*time.Second)
	symbols, err := u.ListSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Equal(t, "000001", symbols[1].Code)
}

func TestListSymbolsNoSourceConfigured(t *testing.T) {
	u := NewUniverse("", "", time.Second)
	_, err := u.ListSymbols(context.Background())
	assert.Error(t, err)
}
