package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"nichescope/internal/domain/models"
	"nichescope/internal/domain/repository"
	domsvc "nichescope/internal/domain/service"
	"nichescope/internal/handler/api"
	mid "nichescope/internal/middleware"
	internalrepo "nichescope/internal/repository"
	icache "nichescope/internal/service/cache"
	"nichescope/internal/service/keepa"
	"nichescope/internal/service/ratelimit"
	"nichescope/internal/service/scraper"
	"nichescope/internal/service/trends"
	"nichescope/internal/services/analytics"
	"nichescope/internal/usecase"
	pkgcache "nichescope/pkg/cache"
	pkgch "nichescope/pkg/clickhouse"
	"nichescope/pkg/config"
	xhttp "nichescope/pkg/http"
	pkgkafka "nichescope/pkg/kafka"
	"nichescope/pkg/logger"
	"nichescope/pkg/metrics"
	"nichescope/pkg/queue"
	"nichescope/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisClient connects to Redis when the cache or the job queue needs it.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Cache.Type == "memory" && !cfg.Queue.Enabled {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.Redis.Addr, err)
	}
	return rc, nil
}

// ProvideCache selects the cache backend. Redis-backed caches share rc with the job queue
// and close it on shutdown.
func ProvideCache(cfg *config.Config, rc *redis.Client) (pkgcache.Service, error) {
	c, err := pkgcache.New(pkgcache.Config{
		Backend:    cfg.Cache.Type,
		Prefix:     cfg.Cache.Redis.Prefix,
		MaxEntries: cfg.Cache.MemoryMaxSize,
		Sweep:      cfg.Cache.MemoryCleanup,
		L1TTL:      cfg.Cache.MemoryTTL,
	}, rc)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return c, nil
}

// ProvideTrendProvider creates the cached trend data client.
func ProvideTrendProvider(cfg *config.Config, c pkgcache.Service, m repository.Metrics, l *logger.Logger) domsvc.TrendDataProvider {
	client := trends.New(trends.Config{
		BaseURL:           cfg.Trends.BaseURL,
		Geo:               cfg.Trends.Geo,
		Timeout:           cfg.Trends.Timeout,
		RequestsPerMinute: cfg.Trends.RequestsPerMinute,
		Retries:           cfg.Trends.Retries,
	}, l.Named("trends"))
	return icache.NewTrendProvider(client, c, cfg.Cache.TrendsTTL, m)
}

// ProvideCompetitionProvider prefers Keepa, then the marketplace scraper. Without either the
// engine falls back to estimated competition.
func ProvideCompetitionProvider(cfg *config.Config, c pkgcache.Service, m repository.Metrics, l *logger.Logger) (domsvc.CompetitionDataProvider, error) {
	var next domsvc.CompetitionDataProvider
	switch {
	case cfg.Keepa.APIKey != "":
		k, err := keepa.New(keepa.Config{
			BaseURL:           cfg.Keepa.BaseURL,
			APIKey:            cfg.Keepa.APIKey,
			Domain:            cfg.Keepa.Domain,
			Timeout:           cfg.Keepa.Timeout,
			RequestsPerMinute: cfg.Keepa.RequestsPerMinute,
			Retries:           cfg.Keepa.Retries,
		}, l.Named("keepa"))
		if err != nil {
			return nil, fmt.Errorf("keepa client: %w", err)
		}
		next = k
	case cfg.Scraper.Enabled:
		next = scraper.New(scraper.Config{
			Country:           cfg.Scraper.Country,
			Timeout:           cfg.Scraper.Timeout,
			RequestsPerMinute: cfg.Scraper.RequestsPerMinute,
		}, l.Named("scraper"))
	default:
		l.Warn("no competition data source configured, using estimates")
		return nil, nil
	}
	return icache.NewCompetitionProvider(next, c, cfg.Cache.KeepaTTL, m), nil
}

// ProvideScorer builds the scorer from the configured weights.
func ProvideScorer(cfg *config.Config) (*analytics.NicheScorer, error) {
	w := cfg.Engine.Weights
	weights, err := models.NewScoringWeights(w.Trend, w.Competition, w.Market, w.Seasonality, w.ContentGap)
	if err != nil {
		return nil, fmt.Errorf("scoring weights: %w", err)
	}
	return analytics.NewNicheScorer(weights)
}

func ProvideKeywordExpander() *analytics.KeywordExpander {
	return analytics.NewKeywordExpander()
}

func ProvideTrendValidator() *analytics.TrendValidator {
	return analytics.NewTrendValidator()
}

func ProvideCompetitiveAnalyzer() *analytics.CompetitiveAnalyzer {
	return analytics.NewCompetitiveAnalyzer()
}

func ProvideListingGenerator() *analytics.ListingGenerator {
	return analytics.NewListingGenerator()
}

func ProvideStressTester(l *logger.Logger) *analytics.StressTester {
	return analytics.NewStressTester(analytics.WithStressLogger(l))
}

// ProvideNicheEngine creates the evaluation engine.
func ProvideNicheEngine(
	cfg *config.Config,
	trendsProvider domsvc.TrendDataProvider,
	products domsvc.CompetitionDataProvider,
	expander *analytics.KeywordExpander,
	analyzer *analytics.CompetitiveAnalyzer,
	scorer *analytics.NicheScorer,
	stress *analytics.StressTester,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.NicheEngine {
	return usecase.NewNicheEngine(usecase.EngineConfig{
		MaxExpandedKeywords:   cfg.Engine.MaxExpandedKeywords,
		MaxAnalyzedKeywords:   cfg.Engine.MaxAnalyzedKeywords,
		MaxCompetitionLookups: cfg.Engine.MaxCompetitionLookups,
		ProductsPerKeyword:    cfg.Engine.ProductsPerKeyword,
		MaxNiches:             cfg.Engine.MaxNiches,
		BatchSize:             cfg.Trends.BatchSize,
		BatchDelay:            cfg.Trends.BatchDelay,
		Timeframe:             models.Timeframe(cfg.Trends.Timeframe),
		Geo:                   cfg.Trends.Geo,
	}, trendsProvider, products, expander, analyzer, scorer, stress,
		usecase.WithEngineLogger(l),
		usecase.WithEngineMetrics(m),
	)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when report storage is in memory.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(context.Background(), pkgch.Config{
		Host:         cfg.ClickHouse.Host,
		Port:         cfg.ClickHouse.Port,
		Database:     cfg.ClickHouse.Database,
		User:         cfg.ClickHouse.User,
		Password:     cfg.ClickHouse.Password,
		UseHTTP:      cfg.ClickHouse.UseHTTP,
		DialTimeout:  cfg.ClickHouse.DialTimeout,
		ReadTimeout:  cfg.ClickHouse.ReadTimeout,
		AsyncInsert:  cfg.ClickHouse.AsyncInsert,
		WaitForAsync: cfg.ClickHouse.WaitForAsync,
		MaxExecTime:  cfg.ClickHouse.MaxExecTime,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideReportStore creates the ClickHouse store and its tables, or a bounded in-memory store.
func ProvideReportStore(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) (repository.ReportStore, error) {
	if ch == nil {
		return internalrepo.NewMemoryReportStore(cfg.Reports.MemoryMax), nil
	}
	store := internalrepo.NewCHReportStore(ch, cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Compression:  cfg.Kafka.Compression,
		RequiredAcks: cfg.Kafka.Producer.RequiredAcks,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		BatchTimeout: cfg.Kafka.Producer.BatchTimeout,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		Async:        cfg.Kafka.Producer.Async,
		KeyOrdered:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher publishes finished reports to Kafka when a producer exists.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topics.Reports)
}

// ProvideReportCollector wires the report processor behind the buffering pipeline.
func ProvideReportCollector(
	cfg *config.Config,
	store repository.ReportStore,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.ReportCollector {
	proc := usecase.NewReportProcessor(store, pub, m)
	pipe := mid.NewReportPipeline(proc, m,
		mid.WithBufferSize(cfg.Reports.BufferSize),
		mid.WithDedupeWindow(cfg.Reports.DedupeWindow),
		mid.WithPipelineLogger(l),
	)
	return usecase.NewReportCollector(proc, m, pipe)
}

// ProvideJobQueue creates the Redis job queue, or nil when asynchronous stress tests are off.
// API-only nodes run it as a producer and dedicated workers as a consumer.
func ProvideJobQueue(cfg *config.Config, rc *redis.Client, l *logger.Logger) (*queue.RedisQueue, error) {
	if !cfg.Queue.Enabled || rc == nil {
		return nil, nil
	}
	mode, err := queue.ParseMode(cfg.Queue.Mode)
	if err != nil {
		return nil, err
	}
	return queue.NewRedisQueue(queue.Config{
		Mode:       mode,
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		Prefix:     cfg.Queue.Prefix,
	}, rc, l.Named("queue")), nil
}

// ProvideNicheService creates the service shared by HTTP, Kafka and the job queue.
func ProvideNicheService(
	cfg *config.Config,
	engine *usecase.NicheEngine,
	trendsProvider domsvc.TrendDataProvider,
	products domsvc.CompetitionDataProvider,
	expander *analytics.KeywordExpander,
	validator *analytics.TrendValidator,
	analyzer *analytics.CompetitiveAnalyzer,
	listing *analytics.ListingGenerator,
	store repository.ReportStore,
	collector *usecase.ReportCollector,
	q *queue.RedisQueue,
	l *logger.Logger,
) *usecase.NicheService {
	var pub queue.Publisher
	if q != nil {
		pub = q
	}
	return usecase.NewNicheService(usecase.ServiceDeps{
		Engine:           engine,
		Trends:           trendsProvider,
		Products:         products,
		Expander:         expander,
		Validator:        validator,
		Analyzer:         analyzer,
		Listing:          listing,
		Store:            store,
		Sink:             collector,
		Queue:            pub,
		Geo:              cfg.Trends.Geo,
		Logger:           l,
		MinProfitability: cfg.Engine.MinProfitability,
		MaxCompetition:   cfg.Engine.MaxCompetition,
	})
}

// ProvideKafkaConsumer creates the evaluation request consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		GroupID:     cfg.Kafka.Consumer.GroupID,
		StartOffset: cfg.Kafka.Consumer.Offset,
		Workers:     cfg.Kafka.Consumer.Workers,
		BufferSize:  cfg.Kafka.Consumer.BufferSize,
		MinBytes:    cfg.Kafka.Consumer.MinBytes,
		MaxBytes:    cfg.Kafka.Consumer.MaxBytes,
		RetryMax:    cfg.Kafka.Consumer.RetryMax,
		BackoffMin:  cfg.Kafka.Consumer.BackoffMin,
		BackoffMax:  cfg.Kafka.Consumer.BackoffMax,
		DLQTopic:    cfg.Kafka.Consumer.DLQTopic,
	}, l.Named("kafka_consumer"))
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaEvaluationHandler handles evaluation requests arriving on the requests topic.
func ProvideKafkaEvaluationHandler(cfg *config.Config, svc *usecase.NicheService, m repository.Metrics, l *logger.Logger) *usecase.KafkaEvaluationHandler {
	return usecase.NewKafkaEvaluationHandler(cfg.Kafka.Topics.Requests, svc, m, l)
}

func ProvideJobs(svc *usecase.NicheService, l *logger.Logger) []queue.Job {
	return []queue.Job{usecase.NewStressTestJob(svc, l)}
}

// ProvideHTTPHandler creates the REST and websocket routes.
func ProvideHTTPHandler(cfg *config.Config, svc *usecase.NicheService, l *logger.Logger) xhttp.Handler {
	rl := ratelimit.New(cfg.API.RateLimit.Capacity, cfg.API.RateLimit.RefillPerSec)
	return api.NewNichesHandler(l, svc, rl)
}

// ProvideClosers lists what the app closes last. A Redis-backed cache owns the shared client.
func ProvideClosers(cfg *config.Config, c pkgcache.Service, rc *redis.Client) []io.Closer {
	closers := []io.Closer{c}
	if rc != nil && cfg.Cache.Type == "memory" {
		closers = append(closers, rc)
	}
	return closers
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler xhttp.Handler,
	collector *usecase.ReportCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaEvaluationHandler,
	q *queue.RedisQueue,
	jobs []queue.Job,
	ch *pkgch.Client,
	closers []io.Closer,
) *server.App {
	return server.New(cfg, l, server.Components{
		Handler:   handler,
		Collector: collector,
		Consumer:  consumer,
		Requests:  kh,
		Queue:     q,
		Jobs:      jobs,
		CH:        ch,
		Closers:   closers,
	})
}
