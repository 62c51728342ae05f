package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedEntry))
	return nil
}

func (p *capturePublisher) snapshot() (string, [][]AggregatedEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topic, p.batches
}

func TestAggregatorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	agg := NewErrorAggregator(AggregatorConfig{Interval: time.Hour, Threshold: 10, Topic: "logs", Publisher: pub})

	l := Nop()
	l.AttachAggregator(agg)
	for i := 0; i < 3; i++ {
		l.Error("predict failed", String("symbol", "AAPL"), Error(errors.New("boom")))
	}
	l.Error("catalog failed")

	if got := agg.Pending(); got != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", got)
	}

	l.DetachAggregator()

	topic, batches := pub.snapshot()
	if topic != "logs" {
		t.Fatalf("unexpected topic %q", topic)
	}
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", batches)
	}
	for _, e := range batches[0] {
		if e.Message == "predict failed" && e.Count != 3 {
			t.Fatalf("expected count 3, got %d", e.Count)
		}
	}
}

func TestAggregatorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	agg := NewErrorAggregator(AggregatorConfig{Interval: time.Hour, Threshold: 2, Topic: "logs", Publisher: pub})
	defer agg.Close()

	agg.Add("error", "a", nil, "x.go:1")
	agg.Add("error", "b", nil, "x.go:2")

	if got := agg.Pending(); got != 0 {
		t.Fatalf("expected flush at threshold, %d pending", got)
	}
}

func TestWarnDoesNotAggregate(t *testing.T) {
	agg := NewErrorAggregator(AggregatorConfig{Interval: time.Hour, Threshold: 10, Publisher: &capturePublisher{}})
	defer agg.Close()

	l := Nop()
	l.AttachAggregator(agg)
	l.Warn("catalog fallback")

	if agg.Pending() != 0 {
		t.Fatalf("warn must not be aggregated")
	}
}

func TestChildLoggersShareAggregator(t *testing.T) {
	agg := NewErrorAggregator(AggregatorConfig{Interval: time.Hour, Threshold: 10, Publisher: &capturePublisher{}})
	defer agg.Close()

	root := Nop()
	child := root.With(String("component", "hub"))
	root.AttachAggregator(agg)

	child.Error("websocket broke")
	if agg.Pending() != 1 {
		t.Fatalf("child logger did not see the attached aggregator")
	}

	root.DetachAggregator()
	child.Error("after detach")
	if agg.Pending() != 0 {
		t.Fatalf("detach flushes and stops collecting, %d pending", agg.Pending())
	}
}

func TestDetachWhileLogging(t *testing.T) {
	l := Nop()
	l.AttachAggregator(NewErrorAggregator(AggregatorConfig{Interval: time.Hour, Threshold: 1000, Publisher: &capturePublisher{}}))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.Error("upstream down", Int("attempt", j))
			}
		}()
	}
	l.DetachAggregator()
	wg.Wait()
}
