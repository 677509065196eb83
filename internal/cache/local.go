package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Local is a size-bounded in-process cache with per-key expiry.
type Local struct {
	mu  sync.Mutex
	lru *lru.Cache
	now func() time.Time
}

func NewLocal(size int) (*Local, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Local{lru: c, now: time.Now}, nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	e := v.(entry)
	if !e.expires.IsZero() && l.now().After(e.expires) {
		l.lru.Remove(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = l.now().Add(ttl)
	}
	l.lru.Add(key, e)
	return nil
}

func (l *Local) Del(_ context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, k := range keys {
		l.lru.Remove(k)
	}
	return nil
}
