package cache

import (
	"context"
	"time"
)

// Remote is the shared layer behind the process-local one; RedisCache satisfies it.
type Remote interface {
	Service
	GetWithTTL(ctx context.Context, key string, dest interface{}) (time.Duration, error)
}

// LayeredCache keeps a small in-process copy (L1) of a remote cache (L2).
// Writes go to L2 first; an L2 read refills L1 for no longer than L2 keeps it.
type LayeredCache struct {
	local  *MemoryCache
	remote Remote
}

func NewLayeredCache(remote Remote, localItems int) *LayeredCache {
	return &LayeredCache{
		local:  NewMemoryCache(localItems, 0),
		remote: remote,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.local.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}

	ttl, err := lc.remote.GetWithTTL(ctx, key, dest)
	if err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, dest, ttl)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.local.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}
