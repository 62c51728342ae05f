package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig addresses the shared cache. Every key is stored as Prefix:key.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	PoolSize    int
	DialTimeout time.Duration
}

// RedisCache implements Service on a Redis instance shared by all replicas.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and pings within ctx so a bad address fails at startup.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "forecastdash"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.ns(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	_, err := c.GetWithTTL(ctx, key, dest)
	return err
}

// GetWithTTL reads the value and its remaining lifetime in one round trip.
// A key without expiry reports 0.
func (c *RedisCache) GetWithTTL(ctx context.Context, key string, dest interface{}) (time.Duration, error) {
	k := c.ns(key)
	var get *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, k)
		ttl = p.TTL(ctx, k)
		return nil
	})
	if errors.Is(err, redis.Nil) || errors.Is(get.Err(), redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}

	data, err := get.Bytes()
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return 0, fmt.Errorf("cache: decode %s: %w", key, err)
	}

	d := ttl.Val()
	if d < 0 {
		d = 0
	}
	return d, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.nsAll(keys)...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.nsAll(keys)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) ns(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) nsAll(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = c.ns(k)
	}
	return out
}
