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

// EventHeader names the header that carries a message's event type.
const EventHeader = "event-type"

// Message is one event to publish. Value is JSON encoded unless it is already []byte.
type Message struct {
	Key   string
	Event string
	Value interface{}
}

// Producer publishes JSON events to Kafka topics.
type Producer struct {
	writer *kafka.Writer
	codec  string
	now    func() time.Time
}

// NewProducer builds a producer from cfg after filling in defaults.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	registerProducerMetrics()
	return &Producer{writer: cfg.writer(), codec: cfg.Compression, now: time.Now}, nil
}

// Publish writes a single event.
func (p *Producer) Publish(ctx context.Context, topic string, m Message) error {
	return p.PublishBatch(ctx, topic, []Message{m})
}

// PublishBatch writes events in one call, so they are acknowledged together. Nothing is
// written when any value fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	start := p.now()
	out := make([]kafka.Message, 0, len(messages))
	var size int
	for _, m := range messages {
		km, err := p.encode(topic, m, start)
		if err != nil {
			return err
		}
		size += len(km.Value)
		out = append(out, km)
	}
	err := p.writer.WriteMessages(ctx, out...)
	producerStats.observe(topic, p.codec, len(out), size, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish %d message(s) to %s: %w", len(out), topic, err)
	}
	return nil
}

func (p *Producer) encode(topic string, m Message, at time.Time) (kafka.Message, error) {
	var value []byte
	switch v := m.Value.(type) {
	case []byte:
		value = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return kafka.Message{}, fmt.Errorf("encode %s event: %w", m.Event, err)
		}
		value = b
	}
	km := kafka.Message{Topic: topic, Value: value, Time: at}
	if m.Key != "" {
		km.Key = []byte(m.Key)
	}
	if m.Event != "" {
		km.Headers = []kafka.Header{{Key: EventHeader, Value: []byte(m.Event)}}
	}
	return km, nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	producerStats    *producerMetrics
	producerStatsReg sync.Once
)

func registerProducerMetrics() {
	producerStatsReg.Do(func() {
		producerStats = &producerMetrics{
			messages: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_producer",
				Name:      "messages_total",
				Help:      "Events published to Kafka by outcome",
			}, []string{"topic", "compression", "result"}),
			bytes: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_producer",
				Name:      "bytes_total",
				Help:      "Encoded event bytes handed to the writer",
			}, []string{"topic"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_producer",
				Name:      "publish_seconds",
				Help:      "Time spent in WriteMessages per batch",
				Buckets:   prometheus.DefBuckets,
			}, []string{"topic"}),
		}
	})
}

func (m *producerMetrics) observe(topic, codec string, count, size int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, codec, result).Add(float64(count))
	m.bytes.WithLabelValues(topic).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
