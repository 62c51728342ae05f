package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	defaultMaxItems = 1000
	defaultCleanup  = 5 * time.Minute
)

type memoryEntry struct {
	key      string
	data     []byte
	expireAt time.Time // zero: never
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// MemoryCache is a size-bounded LRU Service. Values are stored JSON-encoded so
// callers never share memory with the cache.
type MemoryCache struct {
	mu    sync.Mutex
	limit int
	order *list.List // front is most recently used
	index map[string]*list.Element
	now   func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache holds at most maxItems entries and drops expired ones every
// cleanup interval. Non-positive arguments take the defaults.
func NewMemoryCache(maxItems int, cleanup time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	if cleanup <= 0 {
		cleanup = defaultCleanup
	}
	mc := &MemoryCache{
		limit: maxItems,
		order: list.New(),
		index: make(map[string]*list.Element),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	go mc.sweep(cleanup)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	entry := &memoryEntry{key: key, data: data}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if expiration > 0 {
		entry.expireAt = mc.now().Add(expiration)
	}
	if el, ok := mc.index[key]; ok {
		el.Value = entry
		mc.order.MoveToFront(el)
		return nil
	}
	if mc.order.Len() >= mc.limit {
		mc.removeElement(mc.order.Back())
	}
	mc.index[key] = mc.order.PushFront(entry)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.index[key]
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(mc.now()) {
		mc.removeElement(el)
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	mc.mu.Unlock()

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if el, ok := mc.index[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

// Exists reports whether any of keys holds a live entry. It does not touch recency.
func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	for _, key := range keys {
		if el, ok := mc.index[key]; ok && !el.Value.(*memoryEntry).expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Len counts stored entries, expired ones included until they are swept or read.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() { close(mc.done) })
	return nil
}

// mu held
func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.index, el.Value.(*memoryEntry).key)
}

func (mc *MemoryCache) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-mc.done:
			return
		case <-t.C:
		}
		mc.mu.Lock()
		now := mc.now()
		for el := mc.order.Back(); el != nil; {
			prev := el.Prev()
			if el.Value.(*memoryEntry).expired(now) {
				mc.removeElement(el)
			}
			el = prev
		}
		mc.mu.Unlock()
	}
}
