package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"nichescope/pkg/logger"
)

// RedisQueue keeps pending tasks in a list, scheduled retries in a sorted set scored by
// due time, and exhausted tasks in a dead list.
type RedisQueue struct {
	cfg    Config
	client *redis.Client
	log    *logger.Logger
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(cfg Config, client *redis.Client, l *logger.Logger) *RedisQueue {
	if l == nil {
		l = logger.Nop()
	}
	registerQueueMetrics()
	return &RedisQueue{
		cfg:    cfg.withDefaults(),
		client: client,
		log:    l,
		now:    time.Now,
		jobs:   make(map[string]Job),
	}
}

// Register binds jobs to their task types. Producer nodes keep no handlers.
func (q *RedisQueue) Register(jobs ...Job) {
	if !q.cfg.Mode.consumes() {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range jobs {
		if _, ok := q.jobs[j.Type()]; ok {
			q.log.Warn("queue: duplicate job ignored", logger.String("type", j.Type()))
			continue
		}
		q.jobs[j.Type()] = j
	}
}

// Start checks the connection and, on consuming nodes, starts the workers and the retry
// promoter.
func (q *RedisQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("queue: already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("queue: redis ping: %w", err)
	}

	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.running = true
	if q.cfg.Mode.consumes() {
		for i := 0; i < q.cfg.Workers; i++ {
			q.wg.Add(1)
			go q.work(i)
		}
		q.wg.Add(1)
		go q.promote()
	}
	q.log.Info("queue: started",
		logger.String("mode", string(q.cfg.Mode)),
		logger.Int("workers", q.cfg.Workers),
		logger.Int("jobs", len(q.jobs)),
		logger.String("prefix", q.cfg.Prefix))
	return nil
}

// Stop cancels the workers and waits for the task in hand. A task interrupted here is
// retried like any other failure.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("queue: stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue: stop: %w", ctx.Err())
	}
}

// Enqueue stores payload as a new task. A consuming node refuses types it cannot handle,
// since nothing would ever pick them up.
func (q *RedisQueue) Enqueue(ctx context.Context, taskType string, payload interface{}) (string, error) {
	q.mu.RLock()
	running := q.running
	_, known := q.jobs[taskType]
	q.mu.RUnlock()
	if !running {
		return "", ErrNotRunning
	}
	if q.cfg.Mode == ModeBoth && !known {
		return "", fmt.Errorf("queue: no job for task type %q", taskType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: encode %s payload: %w", taskType, err)
	}
	t := Task{ID: uuid.NewString(), Type: taskType, Payload: raw, EnqueuedAt: q.now().UTC()}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("queue: encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.cfg.pendingKey(), data).Err(); err != nil {
		return "", fmt.Errorf("queue: push %s: %w", taskType, err)
	}
	queueStats.tasks.WithLabelValues(taskType, "enqueued").Inc()
	return t.ID, nil
}

func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.cfg.pendingKey())
	retrying := pipe.ZCard(ctx, q.cfg.retryKey())
	dead := pipe.LLen(ctx, q.cfg.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("queue: stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Retrying: retrying.Val(), Dead: dead.Val()}, nil
}

func (q *RedisQueue) work(id int) {
	defer q.wg.Done()
	for q.ctx.Err() == nil {
		res, err := q.client.BRPop(q.ctx, q.cfg.Poll, q.cfg.pendingKey()).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if q.ctx.Err() != nil {
				return
			}
			q.log.Warn("queue: pop", logger.Int("worker", id), logger.Error(err))
			q.pause(q.cfg.Poll)
			continue
		case len(res) < 2:
			continue
		}

		var t Task
		if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
			q.log.Error("queue: undecodable task dropped", logger.Error(err))
			continue
		}
		q.run(t)
	}
}

func (q *RedisQueue) run(t Task) {
	q.mu.RLock()
	job, ok := q.jobs[t.Type]
	q.mu.RUnlock()
	if !ok {
		q.bury(t, fmt.Errorf("no job for task type %q", t.Type))
		return
	}

	t.Attempt++
	start := q.now()
	err := q.safeHandle(job, t)
	queueStats.latency.WithLabelValues(t.Type).Observe(q.now().Sub(start).Seconds())
	if err == nil {
		queueStats.tasks.WithLabelValues(t.Type, "done").Inc()
		q.log.Debug("queue: task done",
			logger.String("id", t.ID),
			logger.String("type", t.Type),
			logger.Int("attempt", t.Attempt),
			logger.Duration("elapsed", q.now().Sub(start)))
		return
	}

	t.LastError = err.Error()
	if IsPermanent(err) {
		q.bury(t, err)
		return
	}
	at, ok := q.cfg.retryAt(q.now(), t.Attempt)
	if !ok {
		q.bury(t, err)
		return
	}
	q.schedule(t, at)
	queueStats.tasks.WithLabelValues(t.Type, "retried").Inc()
	q.log.Warn("queue: task failed, retry scheduled",
		logger.String("id", t.ID),
		logger.String("type", t.Type),
		logger.Int("attempt", t.Attempt),
		logger.Time("retry_at", at),
		logger.Error(err))
}

func (q *RedisQueue) safeHandle(job Job, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s job: %v", t.Type, r)
		}
	}()
	return job.Handle(WithMessageID(q.ctx, t.ID), t)
}

// schedule and bury run with a fresh context so a task in flight during Stop is not lost.
func (q *RedisQueue) schedule(t Task, at time.Time) {
	data, err := json.Marshal(t)
	if err != nil {
		q.log.Error("queue: encode retry", logger.String("id", t.ID), logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.ZAdd(ctx, q.cfg.retryKey(), redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err(); err != nil {
		q.log.Error("queue: schedule retry", logger.String("id", t.ID), logger.Error(err))
	}
}

func (q *RedisQueue) bury(t Task, cause error) {
	queueStats.tasks.WithLabelValues(t.Type, "dead").Inc()
	q.log.Error("queue: task moved to dead list",
		logger.String("id", t.ID),
		logger.String("type", t.Type),
		logger.Int("attempt", t.Attempt),
		logger.Error(cause))
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.LPush(ctx, q.cfg.deadKey(), data).Err(); err != nil {
		q.log.Error("queue: push dead task", logger.String("id", t.ID), logger.Error(err))
	}
}

// promote moves due retries back to the pending list. Only the node whose ZREM removed the
// member pushes it, so concurrent promoters never duplicate a task.
func (q *RedisQueue) promote() {
	defer q.wg.Done()
	t := time.NewTicker(q.cfg.Poll)
	defer t.Stop()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-t.C:
		}
		due, err := q.client.ZRangeByScore(q.ctx, q.cfg.retryKey(), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
			Count: 100,
		}).Result()
		if err != nil {
			if q.ctx.Err() == nil {
				q.log.Warn("queue: load due retries", logger.Error(err))
			}
			continue
		}
		for _, member := range due {
			removed, err := q.client.ZRem(q.ctx, q.cfg.retryKey(), member).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := q.client.LPush(q.ctx, q.cfg.pendingKey(), member).Err(); err != nil {
				q.log.Error("queue: requeue retry", logger.Error(err))
			}
		}
	}
}

func (q *RedisQueue) pause(d time.Duration) {
	select {
	case <-q.ctx.Done():
	case <-time.After(d):
	}
}

var _ Publisher = (*RedisQueue)(nil)

type queueMetrics struct {
	tasks   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	queueStats    *queueMetrics
	queueStatsReg sync.Once
)

func registerQueueMetrics() {
	queueStatsReg.Do(func() {
		queueStats = &queueMetrics{
			tasks: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nichescope",
				Subsystem: "queue",
				Name:      "tasks_total",
				Help:      "Tasks by type and outcome",
			}, []string{"type", "outcome"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nichescope",
				Subsystem: "queue",
				Name:      "handle_seconds",
				Help:      "Time spent in a job per attempt",
				Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
			}, []string{"type"}),
		}
	})
}
