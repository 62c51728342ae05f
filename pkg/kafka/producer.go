package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig describes the event writer. Zero values take the defaults
// documented per field.
type ProducerConfig struct {
	Brokers      []string
	Compression  string        // gzip (default), snappy, lz4, zstd
	RequiredAcks int           // 1 leader (default), -1 all
	WriteTimeout time.Duration // default 5s
	BatchTimeout time.Duration // default 50ms
	MaxAttempts  int           // default 3
	Async        bool          // fire and forget; errors only reach the metrics
	HashByKey    bool          // keep one key on one partition
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = 1
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Producer publishes JSON messages through a kafka-go writer.
type Producer struct {
	writer  messageWriter
	comp    string
	metrics *producerMetrics
}

// NewProducer builds the writer. kafka-go dials lazily, so an unreachable
// broker shows up on the first Publish, not here.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	cfg = cfg.withDefaults()

	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, cfg.Compression), nil
}

func newProducer(w messageWriter, comp string) *Producer {
	return &Producer{writer: w, comp: comp, metrics: publishMetrics()}
}

// Publish writes one message to topic. []byte and string values are sent as
// is, anything else as JSON.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()
	payload, err := encode(value)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: payload, Time: start})
	p.metrics.observe(topic, p.comp, len(payload), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending async writes.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(value interface{}) ([]byte, error) {
	if b, ok := value.([]byte); ok {
		return b, nil
	}
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

var codecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// parseCompression falls back to gzip for unknown names.
func parseCompression(name string) kafka.Compression {
	if c, ok := codecs[name]; ok {
		return c
	}
	return kafka.Gzip
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	producerMetricsOnce sync.Once
	producerCollectors  *producerMetrics
)

func publishMetrics() *producerMetrics {
	producerMetricsOnce.Do(func() {
		opts := func(name, help string) prometheus.CounterOpts {
			return prometheus.CounterOpts{Namespace: "forecastdash", Subsystem: "kafka_producer", Name: name, Help: help}
		}
		producerCollectors = &producerMetrics{
			messages: promauto.NewCounterVec(opts("messages_total", "Messages published, by result."),
				[]string{"topic", "compression", "result"}),
			bytes: promauto.NewCounterVec(opts("bytes_total", "Payload bytes published."),
				[]string{"topic", "compression"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "forecastdash",
				Subsystem: "kafka_producer",
				Name:      "publish_seconds",
				Help:      "Time spent in WriteMessages.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic"}),
		}
	})
	return producerCollectors
}

func (m *producerMetrics) observe(topic, comp string, size int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, comp, result).Inc()
	m.bytes.WithLabelValues(topic, comp).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(took.Seconds())
}
