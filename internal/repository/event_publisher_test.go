package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ForecastDash/internal/domain/models"
)

type sentMessage struct {
	topic string
	key   string
	value interface{}
}

type fakeProducer struct {
	mu     sync.Mutex
	sent   []sentMessage
	err    error
	block  chan struct{} // when set, Publish waits for it to close
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{topic: topic, key: string(key), value: value})
	return f.err
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestPublishEventShape(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "forecastdash.events", nil)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	ev := models.DashboardEvent{
		Type:      models.TransitionPredictSucceeded,
		RequestID: 3,
		Symbol:    "MSFT",
		View: models.DashboardView{
			Confidence: models.Confidence95,
			Result:     &models.ForecastResult{LastPrice: 300},
			Summary:    &models.Summary{AveragePrice: "311.14", Trend: models.TrendBullish},
		},
	}
	if err := p.PublishEvent(context.Background(), ev); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	if len(fp.sent) != 1 {
		t.Fatalf("sent %d messages", len(fp.sent))
	}
	msg := fp.sent[0]
	if msg.topic != "forecastdash.events" || msg.key != "MSFT" {
		t.Fatalf("unexpected routing: %+v", msg)
	}

	b, _ := json.Marshal(msg.value)
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["type"] != "predict_succeeded" || got["average"] != "311.14" || got["trend"] != "bullish" {
		t.Fatalf("unexpected payload: %s", b)
	}
	if got["last_price"] != 300.0 || got["request_id"] != 3.0 || got["at"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected payload: %s", b)
	}
}

func TestPublishEventFallsBackToSelectedSymbol(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "events", nil)

	ev := models.DashboardEvent{
		Type: models.TransitionCatalogLoaded,
		View: models.DashboardView{Selected: &models.Symbol{Symbol: "AAPL"}},
	}
	_ = p.PublishEvent(context.Background(), ev)
	if fp.sent[0].key != "AAPL" {
		t.Fatalf("key = %q", fp.sent[0].key)
	}
}

func TestListenSwallowsErrors(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	p := NewKafkaPublisher(fp, "events", nil)

	p.Listen(time.Second)(models.DashboardEvent{Type: models.TransitionPredictStarted})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fp.count() != 1 {
		t.Fatalf("expected one attempt, got %d", fp.count())
	}
}

func TestListenDoesNotWaitForBroker(t *testing.T) {
	fp := &fakeProducer{block: make(chan struct{})}
	p := NewKafkaPublisher(fp, "events", nil)
	listen := p.Listen(time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, sym := range []string{"AAPL", "MSFT", "GOOGL"} {
			listen(models.DashboardEvent{Type: models.TransitionSymbolChanged, Symbol: sym})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("listener blocked on a stalled broker")
	}

	close(fp.block)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fp.count() != 3 || !fp.closed {
		t.Fatalf("sent %d, closed %v", fp.count(), fp.closed)
	}
	for i, want := range []string{"AAPL", "MSFT", "GOOGL"} {
		if fp.sent[i].key != want {
			t.Fatalf("event %d key = %q, want %q", i, fp.sent[i].key, want)
		}
	}

	// transitions after Close are ignored
	listen(models.DashboardEvent{Type: models.TransitionSymbolChanged, Symbol: "TSLA"})
	if fp.count() != 3 {
		t.Fatalf("event published after close")
	}
}

func TestPublishMessageUsesGivenTopic(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "events", nil)

	if err := p.PublishMessage(context.Background(), "logs", []string{"x"}); err != nil {
		t.Fatalf("PublishMessage: %v", err)
	}
	if fp.sent[0].topic != "logs" || fp.sent[0].key != "" {
		t.Fatalf("unexpected message: %+v", fp.sent[0])
	}
}
