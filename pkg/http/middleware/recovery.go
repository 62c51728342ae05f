package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"ForecastDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a logged 500. If the handler already
// started writing, only the log entry is produced.
func Recover(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				l.Error("handler panic",
					logger.String("panic", fmt.Sprint(r)),
					logger.String("method", c.Request().Method),
					logger.String("route", c.Path()),
					logger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				status := http.StatusInternalServerError
				err = c.JSON(status, echo.Map{
					"status":  status,
					"message": http.StatusText(status),
				})
			}()
			return next(c)
		}
	}
}
