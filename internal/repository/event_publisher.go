package repository

import (
	"context"
	"sync"
	"time"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/domain/repository"
	"ForecastDash/pkg/logger"
)

// producer is satisfied by *kafka.Producer.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// eventRecord is the wire shape of a dashboard transition on the events topic.
type eventRecord struct {
	Type       models.Transition `json:"type"`
	RequestID  uint64            `json:"request_id,omitempty"`
	Symbol     string            `json:"symbol,omitempty"`
	Confidence float64           `json:"confidence"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	LastPrice  *float64          `json:"last_price,omitempty"`
	Average    string            `json:"average,omitempty"`
	Trend      models.Trend      `json:"trend,omitempty"`
	At         time.Time         `json:"at"`
}

func newEventRecord(ev models.DashboardEvent, at time.Time) eventRecord {
	rec := eventRecord{
		Type:       ev.Type,
		RequestID:  ev.RequestID,
		Symbol:     ev.Symbol,
		Confidence: float64(ev.View.Confidence),
		Loading:    ev.View.Loading,
		Error:      ev.View.Error,
		At:         at.UTC(),
	}
	if rec.Symbol == "" && ev.View.Selected != nil {
		rec.Symbol = ev.View.Selected.Symbol
	}
	if ev.View.Result != nil {
		lp := ev.View.Result.LastPrice
		rec.LastPrice = &lp
	}
	if ev.View.Summary != nil {
		rec.Average = ev.View.Summary.AveragePrice
		rec.Trend = ev.View.Summary.Trend
	}
	return rec
}

// eventQueueSize bounds the transitions waiting for the broker. Beyond it new
// transitions are dropped, not waited on.
const eventQueueSize = 256

// KafkaPublisher implements EventPublisher for Kafka. It also ships aggregated
// error logs, so it doubles as the logger's Publisher.
type KafkaPublisher struct {
	producer producer
	topic    string
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	queue   chan models.DashboardEvent
	drained chan struct{}
	closed  bool
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(p producer, topic string, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{producer: p, topic: topic, log: log, now: time.Now}
}

var _ repository.EventPublisher = (*KafkaPublisher)(nil)
var _ logger.Publisher = (*KafkaPublisher)(nil)

// PublishEvent sends one transition keyed by symbol, so a symbol's events stay ordered.
func (p *KafkaPublisher) PublishEvent(ctx context.Context, ev models.DashboardEvent) error {
	rec := newEventRecord(ev, p.now())
	return p.producer.Publish(ctx, p.topic, []byte(rec.Symbol), rec)
}

// PublishMessage sends an arbitrary JSON payload to topic.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// Listen adapts PublishEvent to a dashboard listener. Transitions are queued
// and published in order by one goroutine, so a slow or unreachable broker
// never holds up the dashboard. Failures are logged, never propagated.
func (p *KafkaPublisher) Listen(timeout time.Duration) func(models.DashboardEvent) {
	p.mu.Lock()
	if p.queue == nil && !p.closed {
		p.queue = make(chan models.DashboardEvent, eventQueueSize)
		p.drained = make(chan struct{})
		go p.drain(p.queue, timeout)
	}
	p.mu.Unlock()
	return p.enqueue
}

func (p *KafkaPublisher) enqueue(ev models.DashboardEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.queue == nil {
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.log.Warn("event queue full, dropping dashboard event", logger.String("type", string(ev.Type)))
	}
}

func (p *KafkaPublisher) drain(queue <-chan models.DashboardEvent, timeout time.Duration) {
	defer close(p.drained)
	for ev := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := p.PublishEvent(ctx, ev)
		cancel()
		if err != nil {
			// warn, not error: error logs are themselves shipped through this publisher
			p.log.Warn("publish dashboard event failed",
				logger.String("type", string(ev.Type)),
				logger.Error(err),
			)
		}
	}
}

// Close publishes what is still queued, then closes the producer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	queue := p.queue
	p.mu.Unlock()

	if queue != nil {
		close(queue)
		<-p.drained
	}
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishEvent(context.Context, models.DashboardEvent) error { return nil }
func (NoopPublisher) Close() error                                            { return nil }
