package kafka

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"nichescope/pkg/logger"
)

// Delivery is one fetched message as seen by a handler.
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Event     string
	Value     []byte
	Attempt   int
}

// MessageHandler handles the messages of one topic. A returned error triggers a retry.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, Delivery) error
}

// Consumer reads the registered topics within a consumer group and hands messages to a
// fixed set of workers. A partition always maps to the same worker, so messages of one
// partition are handled in order and committed one by one.
type Consumer struct {
	cfg      ConsumerConfig
	log      *logger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	lanes    []chan fetched
	dlq      *kafka.Writer

	ctx      context.Context
	cancel   context.CancelFunc
	readWg   sync.WaitGroup
	workWg   sync.WaitGroup
	stopOnce sync.Once
}

type fetched struct {
	topic string
	km    kafka.Message
}

// NewConsumer validates cfg and prepares the worker lanes. Readers are opened by Start.
func NewConsumer(cfg ConsumerConfig, l *logger.Logger) (*Consumer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Nop()
	}
	registerConsumerMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:      cfg,
		log:      l,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		lanes:    make([]chan fetched, cfg.Workers),
		ctx:      ctx,
		cancel:   cancel,
	}
	per := cfg.BufferSize / cfg.Workers
	if per < 1 {
		per = 1
	}
	for i := range c.lanes {
		c.lanes[i] = make(chan fetched, per)
	}
	if cfg.DLQTopic != "" {
		c.dlq = ProducerConfig{Brokers: cfg.Brokers, KeyOrdered: true}.withDefaults().writer()
	}
	return c, nil
}

// RegisterHandler binds a handler to its topic. Call before Start.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka consumer: duplicate handler ignored", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("kafka consumer: no handlers registered")
	}
	for i := range c.lanes {
		c.workWg.Add(1)
		go c.work(c.lanes[i])
	}
	for topic := range c.handlers {
		r := c.cfg.reader(topic)
		c.readers[topic] = r
		c.readWg.Add(1)
		go c.read(topic, r)
	}
	c.log.Info("kafka consumer: started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", len(c.lanes)))
	return nil
}

// Stop cancels fetching, lets the workers finish what they hold and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.cancel()
		c.readWg.Wait()
		for _, lane := range c.lanes {
			close(lane)
		}

		done := make(chan struct{})
		go func() {
			c.workWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer: stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("kafka consumer: close reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("kafka consumer: close dlq writer", logger.Error(cerr))
			}
		}
	})
	return err
}

func (c *Consumer) read(topic string, r *kafka.Reader) {
	defer c.readWg.Done()
	for {
		km, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka consumer: fetch", logger.String("topic", topic), logger.Error(err))
			if !sleep(c.ctx, time.Second) {
				return
			}
			continue
		}
		lane := c.lanes[km.Partition%len(c.lanes)]
		select {
		case lane <- fetched{topic: topic, km: km}:
			consumerStats.pending.WithLabelValues(topic).Inc()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(lane <-chan fetched) {
	defer c.workWg.Done()
	for f := range lane {
		consumerStats.pending.WithLabelValues(f.topic).Dec()
		h, ok := c.handlers[f.topic]
		if !ok {
			continue
		}
		start := time.Now()
		if c.deliver(h, f) {
			c.commit(f)
		}
		consumerStats.latency.WithLabelValues(f.topic).Observe(time.Since(start).Seconds())
	}
}

// deliver runs the handler with retries. It reports whether the offset may be committed,
// which is the case after success or after the message reached the DLQ.
func (c *Consumer) deliver(h MessageHandler, f fetched) bool {
	d := toDelivery(f)
	var err error
	for d.Attempt = 1; d.Attempt <= c.cfg.RetryMax+1; d.Attempt++ {
		if err = c.safeHandle(h, d); err == nil {
			return true
		}
		if d.Attempt > c.cfg.RetryMax || !sleep(c.ctx, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, d.Attempt)) {
			break
		}
	}
	if c.ctx.Err() != nil && err != nil {
		return false
	}

	consumerStats.failures.WithLabelValues(f.topic).Inc()
	c.log.Error("kafka consumer: handler failed",
		logger.String("topic", f.topic),
		logger.String("key", d.Key),
		logger.Int("attempts", d.Attempt),
		logger.Error(err))
	if c.dlq == nil {
		return false
	}
	headers := append([]kafka.Header{{Key: "source-topic", Value: []byte(f.topic)}}, f.km.Headers...)
	if werr := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     f.km.Key,
		Value:   f.km.Value,
		Headers: headers,
	}); werr != nil {
		c.log.Error("kafka consumer: dlq write", logger.String("topic", c.cfg.DLQTopic), logger.Error(werr))
		return false
	}
	return true
}

func (c *Consumer) safeHandle(h MessageHandler, d Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", d.Topic, r)
		}
	}()
	return h.Handle(c.ctx, d)
}

func (c *Consumer) commit(f fetched) {
	r := c.readers[f.topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, f.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka consumer: commit",
		logger.String("topic", f.topic),
		logger.Int("partition", f.km.Partition),
		logger.Error(err))
}

func toDelivery(f fetched) Delivery {
	d := Delivery{
		Topic:     f.topic,
		Partition: f.km.Partition,
		Offset:    f.km.Offset,
		Key:       string(f.km.Key),
		Value:     f.km.Value,
	}
	for _, h := range f.km.Headers {
		if h.Key == EventHeader {
			d.Event = string(h.Value)
		}
	}
	return d
}

// backoff doubles from min per attempt up to max and subtracts up to half as jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type consumerMetrics struct {
	pending  *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

var (
	consumerStats    *consumerMetrics
	consumerStatsReg sync.Once
)

func registerConsumerMetrics() {
	consumerStatsReg.Do(func() {
		consumerStats = &consumerMetrics{
			pending: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_consumer",
				Name:      "pending_messages",
				Help:      "Fetched messages waiting for a worker",
			}, []string{"topic"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_consumer",
				Name:      "handle_seconds",
				Help:      "Handling time per message including retries",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
			}, []string{"topic"}),
			failures: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nichescope",
				Subsystem: "kafka_consumer",
				Name:      "failures_total",
				Help:      "Messages that still failed after every retry",
			}, []string{"topic"}),
		}
	})
}
