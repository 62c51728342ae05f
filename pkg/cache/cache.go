package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is a JSON-valued key/value store with per-entry expiry. Set encodes
// value, Get decodes into dest. A zero expiration keeps the entry until evicted.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects a backend. MaxItems bounds the in-process layer for both
// memory and redis (where it is the L1 in front of Redis).
type Config struct {
	Backend         string
	MaxItems        int
	CleanupInterval time.Duration
	Redis           RedisConfig
}

// Open builds the configured cache. BackendNone returns a nil Service.
func Open(ctx context.Context, cfg Config) (Service, error) {
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(cfg.MaxItems, cfg.CleanupInterval), nil
	case BackendRedis:
		rc, err := NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(rc, cfg.MaxItems), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}

// Key joins parts with ':' (e.g. forecast:AAPL:7).
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}
