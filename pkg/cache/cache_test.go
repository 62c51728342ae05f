package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	Day   int     `json:"day"`
	Price float64 `json:"price"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache(0, 0)
	defer mc.Close()
	ctx := context.Background()

	in := []point{{1, 101.5}, {2, 102.25}}
	if err := mc.Set(ctx, "k", in, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out []point
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 || out[1].Price != 102.25 {
		t.Fatalf("unexpected value: %+v", out)
	}

	// mutating the caller's slice must not leak into the cache
	in[0].Price = 0
	out = nil
	_ = mc.Get(ctx, "k", &out)
	if out[0].Price != 101.5 {
		t.Fatalf("cache aliased caller data: %+v", out)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(0, 0)
	defer mc.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }

	_ = mc.Set(ctx, "k", "v", time.Minute)
	if ok, _ := mc.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}

	now = now.Add(2 * time.Minute)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired entry not dropped on read")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(2, 0)
	defer mc.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	mc.now = func() time.Time { return now }
	tick := func() { now = now.Add(time.Second) }

	_ = mc.Set(ctx, "a", 1, 0)
	tick()
	_ = mc.Set(ctx, "b", 2, 0)
	tick()
	var n int
	_ = mc.Get(ctx, "a", &n) // a is now fresher than b
	tick()
	_ = mc.Set(ctx, "c", 3, 0)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to survive")
	}
}

type fakeRemote struct {
	*MemoryCache
	ttl  time.Duration
	gets int
}

func (f *fakeRemote) GetWithTTL(ctx context.Context, key string, dest interface{}) (time.Duration, error) {
	f.gets++
	if err := f.MemoryCache.Get(ctx, key, dest); err != nil {
		return 0, err
	}
	return f.ttl, nil
}

func TestLayeredCacheBackfillsMemory(t *testing.T) {
	remote := &fakeRemote{MemoryCache: NewMemoryCache(0, 0), ttl: time.Minute}
	lc := NewLayeredCache(remote, 0)
	defer lc.Close()
	ctx := context.Background()

	_ = remote.MemoryCache.Set(ctx, "k", "v", time.Minute)

	var s string
	if err := lc.Get(ctx, "k", &s); err != nil || s != "v" {
		t.Fatalf("first get = %q, %v", s, err)
	}
	if err := lc.Get(ctx, "k", &s); err != nil || s != "v" {
		t.Fatalf("second get = %q, %v", s, err)
	}
	if remote.gets != 1 {
		t.Fatalf("remote hit %d times, want 1", remote.gets)
	}

	_ = lc.Delete(ctx, "k")
	if err := lc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("forecast", "AAPL", 7); got != "forecast:AAPL:7" {
		t.Fatalf("key = %q", got)
	}
	if got := Key("catalog"); got != "catalog" {
		t.Fatalf("key = %q", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	svc, err := Open(ctx, Config{Backend: BackendNone})
	if err != nil || svc != nil {
		t.Fatalf("none: %v %v", svc, err)
	}

	svc, err = Open(ctx, Config{Backend: BackendMemory, MaxItems: 4})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	defer svc.Close()
	if mc, ok := svc.(*MemoryCache); !ok || mc.limit != 4 {
		t.Fatalf("memory: got %T", svc)
	}

	if _, err := Open(ctx, Config{Backend: "memcached"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
