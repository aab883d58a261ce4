package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "nichescope/pkg/logger"
)

// Recover turns a handler panic into a 500 envelope and logs the stack with the request id.
// Nothing is written when the response was already committed, as with a running websocket.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("http handler panic",
					applogger.String("request_id", RequestID(c)),
					applogger.String("route", c.Path()),
					applogger.Error(perr),
					applogger.String("stack", string(debug.Stack())))
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusOK, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
