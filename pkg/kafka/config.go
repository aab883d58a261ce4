package kafka

import (
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig describes the writer behind a Producer. Zero fields take the defaults
// of DefaultProducerConfig.
type ProducerConfig struct {
	Brokers      []string
	Compression  string
	RequiredAcks int
	MaxAttempts  int
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	// Async makes Publish return before the brokers acknowledge. Write errors are then
	// only visible in the producer metrics.
	Async bool
	// KeyOrdered routes messages by key hash so every event of one niche lands on the
	// same partition.
	KeyOrdered bool
}

func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Compression:  "snappy",
		RequiredAcks: -1,
		MaxAttempts:  5,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		KeyOrdered:   true,
	}
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	def := DefaultProducerConfig()
	if c.Compression == "" {
		c.Compression = def.Compression
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = def.BatchBytes
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = def.BatchTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	return c
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return errors.New("kafka: required_acks must be -1, 0 or 1")
	}
	return nil
}

func (c ProducerConfig) writer() *kafka.Writer {
	var bal kafka.Balancer = &kafka.LeastBytes{}
	if c.KeyOrdered {
		bal = &kafka.Hash{}
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(c.RequiredAcks),
		Compression:  compressionCodec(c.Compression),
		MaxAttempts:  c.MaxAttempts,
		BatchSize:    c.BatchSize,
		BatchBytes:   int64(c.BatchBytes),
		BatchTimeout: c.BatchTimeout,
		WriteTimeout: c.WriteTimeout,
		ReadTimeout:  c.ReadTimeout,
		Async:        c.Async,
	}
}

// compressionCodec maps a config name to a codec. Unknown names fall back to snappy.
func compressionCodec(name string) kafka.Compression {
	switch name {
	case "none":
		return 0
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

// ConsumerConfig describes the readers and worker pool behind a Consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	// StartOffset is "earliest" or "latest" and applies to groups without a committed offset.
	StartOffset string
	Workers     int
	BufferSize  int
	MinBytes    int
	MaxBytes    int
	// RetryMax bounds redeliveries of a failing message inside the worker.
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	// DLQTopic receives messages that still fail after RetryMax. Empty leaves them
	// uncommitted for redelivery.
	DLQTopic string
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		GroupID:     "nichescope",
		StartOffset: "earliest",
		Workers:     2,
		BufferSize:  64,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		RetryMax:    3,
		BackoffMin:  200 * time.Millisecond,
		BackoffMax:  5 * time.Second,
	}
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if c.GroupID == "" {
		c.GroupID = def.GroupID
	}
	if c.StartOffset == "" {
		c.StartOffset = def.StartOffset
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.MinBytes <= 0 {
		c.MinBytes = def.MinBytes
	}
	if c.MaxBytes < c.MinBytes {
		c.MaxBytes = def.MaxBytes
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = def.BackoffMin
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	return c
}

func (c ConsumerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka: at least one broker is required")
	}
	if c.StartOffset != "earliest" && c.StartOffset != "latest" {
		return errors.New("kafka: start offset must be earliest or latest")
	}
	return nil
}

func (c ConsumerConfig) reader(topic string) *kafka.Reader {
	start := kafka.FirstOffset
	if c.StartOffset == "latest" {
		start = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.Brokers,
		Topic:       topic,
		GroupID:     c.GroupID,
		MinBytes:    c.MinBytes,
		MaxBytes:    c.MaxBytes,
		StartOffset: start,
	})
}
