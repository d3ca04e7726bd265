package schedule

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrebound/trader/internal/signalstore"
)

func TestNeedsScanWhenStoreIsEmpty(t *testing.T) {
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)
	assert.True(t, NeedsScan(store, 20*time.Hour))
}

func TestNeedsScanRespectsFreshSet(t *testing.T) {
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Write(time.Now(), nil))
	assert.False(t, NeedsScan(store, 20*time.Hour))
}

func TestNeedsScanWhenSetIsStale(t *testing.T) {
	store, err := signalstore.New(t.TempDir())
	require.NoError(t, err)
	runDate := time.Now()
	require.NoError(t, store.Write(runDate, nil))

	past := time.Now().Add(-30 * time.Hour)
	require.NoError(t, os.Chtimes(store.PathFor(runDate), past, past))
	assert.True(t, NeedsScan(store, 20*time.Hour))
}
