package middleware

import (
	"strconv"
	"sync"
	"time"

	applogger "ForecastDash/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

var (
	httpMetricsOnce sync.Once
	httpCollectors  *httpMetrics
)

// collectors registers the HTTP collectors with the default registry on first use.
func collectors() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpCollectors = &httpMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "forecastdash",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
			latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "forecastdash",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			}, []string{"route", "method", "class"}),
			inFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "forecastdash",
				Subsystem: "http",
				Name:      "in_flight_requests",
				Help:      "Requests currently being served.",
			}, []string{"route", "method"}),
			size: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "forecastdash",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "HTTP response body size.",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
			}, []string{"route", "method", "class"}),
		}
	})
	return httpCollectors
}

// Metrics records request metrics keyed by the matched route pattern, so path
// parameters do not explode label cardinality. 5xx responses are logged as
// errors and responses slower than slowThreshold as warnings.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	m := collectors()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route, method := c.Path(), c.Request().Method
			if route == "" {
				route = "unmatched"
			}
			gauge := m.inFlight.WithLabelValues(route, method)
			gauge.Inc()
			defer gauge.Dec()

			start := time.Now()
			if err := next(c); err != nil {
				// the status is only final once echo has written the error
				c.Error(err)
			}
			elapsed := time.Since(start)

			code := c.Response().Status
			class := strconv.Itoa(code/100) + "xx"
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.latency.WithLabelValues(route, method, class).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route, method, class).Observe(float64(c.Response().Size))

			if l == nil {
				return nil
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.Int("status", code),
				applogger.Duration("duration_ms", elapsed),
			}
			switch {
			case code >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}
