package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"
)

func newTestMemory(maxSize int) (*Memory, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(config.CacheConfig{MaxSize: maxSize, TTL: time.Minute})
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemoryGetSetAndExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(10)
	defer m.Close()

	_, err := m.Get(ctx, "k")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	*now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(2)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	*now = now.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", "2"))
	*now = now.Add(time.Second)
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.True(t, errors.Is(err, common.ErrCacheMiss))
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("sys", "user"), Key("sys", "user"))
	assert.NotEqual(t, Key("sys", "user"), Key("sy", "suser"))
}
