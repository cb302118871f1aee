package redis

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type CacheInterface interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Incr bumps an integer counter, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
}

var _ CacheInterface = (*Cache)(nil)
