package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaleSentinelRemovedAtStartup(t *testing.T) {
	stop := filepath.Join(t.TempDir(), "STOP_SIGNAL")
	require.NoError(t, os.WriteFile(stop, nil, 0644))

	c := New(context.Background(), stop)
	assert.False(t, c.Stopped(), "a leftover sentinel must not stop a fresh run")
	_, err := os.Stat(stop)
	assert.True(t, os.IsNotExist(err))
}

func TestSentinelStopsAndIsConsumed(t *testing.T) {
	stop := filepath.Join(t.TempDir(), "STOP_SIGNAL")
	c := New(context.Background(), stop)
	assert.False(t, c.Stopped())

	require.NoError(t, os.WriteFile(stop, nil, 0644))
	assert.True(t, c.Stopped())
	_, err := os.Stat(stop)
	assert.True(t, os.IsNotExist(err), "the stop directive is consumed when observed")
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(ctx, "")
	assert.False(t, c.Stopped())
	cancel()
	assert.True(t, c.Stopped())
}
