package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(100, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Second))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err), "запись должна истечь")

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)
	assert.InDelta(t, 1.0/3.0, m.HitRatio, 1e-9)
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "top:10", []byte("x"), 0))
	require.NoError(t, c.Set(ctx, "top:5", []byte("y"), 0))
	require.NoError(t, c.Set(ctx, "other", []byte("z"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "top:"))
	assert.Equal(t, 1, c.Len())
	_, err := c.Get(ctx, "other")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), c.GetMetrics().Invalidations)
}

func TestMemoryCache_InvalidKey(t *testing.T) {
	c := NewMemoryCache()
	_, err := c.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, c.Set(context.Background(), "", nil, 0), ErrInvalidKey)
}
