package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nichescope/pkg/http/middleware"
	"nichescope/pkg/logger"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration. WriteTimeout must cover a full evaluation,
// since the synchronous evaluate route answers only when the run finishes.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// CORSOrigins lists allowed origins. Empty disables CORS handling.
	CORSOrigins   []string
	BodyLimit     string
	Metrics       bool
	SlowThreshold time.Duration
	Registerer    prometheus.Registerer
	Logger        *logger.Logger
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	log    *logger.Logger
	errc   chan error
}

// NewServer builds the echo instance. The chain runs recovery, request id, metrics,
// logging, CORS and body limit, in that order.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		CORSOrigins:     []string{"*"},
		BodyLimit:       "1M",
		Metrics:         true,
		SlowThreshold:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(log))
	e.Use(echomw.RequestID())
	if cfg.Metrics {
		e.Use(middleware.Metrics(cfg.Registerer, log, cfg.SlowThreshold))
	}
	e.Use(middleware.RequestLogging(log))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{
				echo.HeaderXRequestID,
				echo.HeaderRetryAfter,
			},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(echomw.BodyLimit(cfg.BodyLimit))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}
	if cfg.Metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	return &Server{
		echo:   e,
		config: cfg,
		log:    log,
		errc:   make(chan error, 1),
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start listens in the background. A listener failure is delivered on Errors.
func (s *Server) Start() error {
	addr := s.Addr()
	go func() {
		s.log.Info("http server: listening", logger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errc <- fmt.Errorf("http server %s: %w", addr, err)
		}
	}()
	return nil
}

// Errors delivers a listener failure after Start.
func (s *Server) Errors() <-chan error {
	return s.errc
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http server: stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write timeouts and the graceful shutdown budget.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS sets the allowed origins; none disables CORS.
func WithCORS(origins ...string) ServerOption {
	return func(c *ServerConfig) {
		c.CORSOrigins = origins
	}
}

// WithBodyLimit caps request bodies, e.g. "1M". Empty disables the limit.
func WithBodyLimit(limit string) ServerOption {
	return func(c *ServerConfig) {
		c.BodyLimit = limit
	}
}

func WithLogger(l *logger.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
	}
}

// WithMetrics toggles request metrics and the /metrics endpoint. reg may be nil for the
// default registry.
func WithMetrics(enabled bool, slow time.Duration, reg prometheus.Registerer) ServerOption {
	return func(c *ServerConfig) {
		c.Metrics = enabled
		c.SlowThreshold = slow
		c.Registerer = reg
	}
}
