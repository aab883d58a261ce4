package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "nichescope/pkg/logger"
)

// RequestID returns the id assigned by the request id middleware, if any.
func RequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// RequestLogging logs every request at debug level and failed handlers at warn level.
// Websocket upgrades are logged once the stream closes.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			fields := []applogger.Field{
				applogger.String("request_id", RequestID(c)),
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("query", req.URL.RawQuery),
				applogger.String("remote_ip", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if err != nil {
				l.Warn("http request", append(fields, applogger.Error(err))...)
				return nil
			}
			l.Debug("http request", fields...)
			return nil
		}
	}
}
