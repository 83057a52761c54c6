package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxContexts)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 15*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 10*time.Second, cfg.DetailTimeout)
}

func TestNewFillsInvalidConfigWithDefaults(t *testing.T) {
	pool := New(Config{})
	assert.Equal(t, 3, pool.cfg.MaxContexts)
	assert.Equal(t, 15*time.Second, pool.cfg.WaitTimeout)
	assert.Equal(t, 10*time.Second, pool.cfg.DetailTimeout)
	assert.Len(t, pool.sem, 0)
	assert.Equal(t, 3, cap(pool.sem))
}

func TestAcquireBoundsConcurrency(t *testing.T) {
	pool := New(Config{MaxContexts: 1})

	release1, err := pool.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release1()
	release2, err := pool.acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestCloseWithoutLaunchIsNoop(t *testing.T) {
	pool := New(DefaultConfig())
	assert.NoError(t, pool.Close())
}
