package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"nichescope/internal/usecase"
	pkgch "nichescope/pkg/clickhouse"
	"nichescope/pkg/config"
	xhttp "nichescope/pkg/http"
	pkgkafka "nichescope/pkg/kafka"
	applogger "nichescope/pkg/logger"
	"nichescope/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	collector  *usecase.ReportCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	jobs       []queue.Job
	chClient   *pkgch.Client
	closers    []io.Closer
	httpServer *xhttp.Server
}

// Components groups what App runs. Consumer, Queue and ClickHouse are nil when disabled.
type Components struct {
	Handler   xhttp.Handler
	Collector *usecase.ReportCollector
	Consumer  *pkgkafka.Consumer
	Requests  pkgkafka.MessageHandler
	Queue     *queue.RedisQueue
	Jobs      []queue.Job
	CH        *pkgch.Client
	Closers   []io.Closer // closed last, in order
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:       cfg,
		log:       l,
		handler:   c.Handler,
		collector: c.Collector,
		consumer:  c.Consumer,
		kh:        c.Requests,
		queue:     c.Queue,
		jobs:      c.Jobs,
		chClient:  c.CH,
		closers:   c.Closers,
	}
}

// Run starts the application and blocks until interrupted or the listener fails.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithBodyLimit(a.cfg.Server.BodyLimit),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.SlowThreshold, nil),
		xhttp.WithLogger(a.log),
	)

	// Report sinks must be running before anything can produce reports
	a.collector.Start(ctx)

	if a.queue != nil {
		a.queue.Register(a.jobs...)
		if err := a.queue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var runErr error
	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.log.Error("http server failed", applogger.Error(runErr))
	}

	if err := a.shutdown(ctx); err != nil {
		return err
	}
	return runErr
}

// shutdown stops intake first, then drains the report sinks and closes the clients.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// flushes buffered reports, then closes the store and the report producer
	if err := a.collector.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
