// Package cache stores resolved playlist materializations. Redis is used when
// an address is configured; otherwise an in-process LRU keeps a single
// instance warm.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// PlaylistKey names the cached materialization of a playlist.
func PlaylistKey(playlistID string) string {
	return fmt.Sprintf("playlist:%s:resolved", playlistID)
}
