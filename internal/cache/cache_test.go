package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewLocal(2)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, PlaylistKey("pl-1"), []byte("a"), time.Minute))
	got, err := c.Get(ctx, PlaylistKey("pl-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	t.Run("expiry", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, err := c.Get(ctx, PlaylistKey("pl-1"))
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("eviction", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))
		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Del(ctx, "b", "c"))
		_, err := c.Get(ctx, "c")
		assert.ErrorIs(t, err, ErrMiss)
	})
}

func TestPlaylistKey(t *testing.T) {
	assert.Equal(t, "playlist:pl-1:resolved", PlaylistKey("pl-1"))
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set, skipping redis test")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, os.Getenv("REDIS_USERNAME"), os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Skipf("redis not available, skipping test: %v", err)
	}
	defer r.Close()

	key := PlaylistKey("test-" + time.Now().Format("150405.000"))
	require.NoError(t, r.Set(ctx, key, []byte("v"), time.Minute))
	got, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, r.Del(ctx, key))
	_, err = r.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)
}
