package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries somewhere (a Kafka topic in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type AggregatorConfig struct {
	Interval  time.Duration // flush period
	Threshold int           // distinct entries that force an early flush
	Topic     string
	Publisher Publisher
}

// AggregatedEntry is one distinct (level, message, fields, caller) tuple and how often it fired.
type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// ErrorAggregator deduplicates repeated error logs and publishes them in batches.
type ErrorAggregator struct {
	cfg     AggregatorConfig
	mu      sync.Mutex
	entries map[string]*AggregatedEntry
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewErrorAggregator(cfg AggregatorConfig) *ErrorAggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	a := &ErrorAggregator{
		cfg:     cfg,
		entries: make(map[string]*AggregatedEntry),
		stop:    make(chan struct{}),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *ErrorAggregator) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		a.entries[key] = &AggregatedEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(a.entries) >= a.cfg.Threshold {
		a.flushLocked()
	}
}

// Pending reports the number of distinct entries waiting for the next flush.
func (a *ErrorAggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func (a *ErrorAggregator) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
		case <-a.stop:
			a.mu.Lock()
			a.flushLocked()
			a.mu.Unlock()
			return
		}
	}
}

func (a *ErrorAggregator) flushLocked() {
	if len(a.entries) == 0 || a.cfg.Publisher == nil {
		return
	}
	batch := make([]AggregatedEntry, 0, len(a.entries))
	for _, e := range a.entries {
		batch = append(batch, *e)
	}
	a.entries = make(map[string]*AggregatedEntry)

	// publishing happens off the logging path
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.cfg.Publisher.PublishMessage(ctx, a.cfg.Topic, batch); err != nil {
			// the logger itself is the caller here, so stderr it is
			fmt.Fprintf(os.Stderr, "publish aggregated logs: %v\n", err)
		}
	}()
}

// Close flushes what is pending and waits for in-flight publishes.
func (a *ErrorAggregator) Close() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
