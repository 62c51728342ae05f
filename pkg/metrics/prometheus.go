package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	catalogLoads    *prometheus.CounterVec
	forecasts       *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	upstreamLatency *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		catalogLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastdash_catalog_loads_total",
				Help: "Catalog loads by source (service or fallback)",
			},
			[]string{"source"},
		),
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastdash_forecasts_total",
				Help: "Forecast requests by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastdash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecastdash_last_price",
				Help: "Last observed price reported by the prediction service",
			},
			[]string{"symbol"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecastdash_upstream_duration_seconds",
				Help:    "Duration of prediction service calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

// RecordCatalogLoad counts a catalog load from source.
func (r *Recorder) RecordCatalogLoad(source string) {
	r.catalogLoads.WithLabelValues(source).Inc()
}

// RecordForecast counts a forecast outcome (ok, failed, superseded).
func (r *Recorder) RecordForecast(symbol, outcome string) {
	r.forecasts.WithLabelValues(symbol, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordUpstreamLatency records prediction service latency in seconds.
func (r *Recorder) RecordUpstreamLatency(op string, seconds float64) {
	r.upstreamLatency.WithLabelValues(op).Observe(seconds)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordCatalogLoad(string)              {}
func (Noop) RecordForecast(string, string)         {}
func (Noop) RecordError(string)                    {}
func (Noop) RecordLastPrice(string, float64)       {}
func (Noop) RecordUpstreamLatency(string, float64) {}
