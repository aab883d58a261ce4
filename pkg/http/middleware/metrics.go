package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	applogger "nichescope/pkg/logger"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

var (
	reqStats     *httpMetrics
	reqStatsOnce sync.Once
)

func registerHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	reqStatsOnce.Do(func() {
		m := &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nichescope",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route template and status",
			}, []string{"route", "method", "status"}),
			// evaluations legitimately run for tens of seconds
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nichescope",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			}, []string{"route", "method", "class"}),
			inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "nichescope",
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Requests currently being served",
			}, []string{"route"}),
			size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nichescope",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "HTTP response size",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			}, []string{"route", "class"}),
		}
		reg.MustRegister(m.requests, m.duration, m.inFlight, m.size)
		reqStats = m
	})
	return reqStats
}

// Metrics records request metrics labelled by the registered route template, which keeps
// cardinality low. 5xx responses are logged as errors and slow requests as warnings.
func Metrics(reg prometheus.Registerer, l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := registerHTTPMetrics(reg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.inFlight.WithLabelValues(route).Inc()
			defer m.inFlight.WithLabelValues(route).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			class := statusClass(code)
			elapsed := time.Since(start)
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.duration.WithLabelValues(route, method, class).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route, class).Observe(float64(c.Response().Size))

			if l == nil {
				return nil
			}
			switch {
			case code >= 500:
				l.Error("http request failed", requestFields(c, route, code, elapsed)...)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow", requestFields(c, route, code, elapsed)...)
			}
			return nil
		}
	}
}

func requestFields(c echo.Context, route string, code int, elapsed time.Duration) []applogger.Field {
	return []applogger.Field{
		applogger.String("request_id", RequestID(c)),
		applogger.String("route", route),
		applogger.Int("status", code),
		applogger.Duration("duration", elapsed),
		applogger.Int64("bytes", c.Response().Size),
	}
}

func statusClass(code int) string {
	if code < 100 || code >= 600 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
