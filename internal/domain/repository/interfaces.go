package repository

import (
	"context"

	"ForecastDash/internal/domain/models"
)

// PredictionService is the remote forecasting backend.
type PredictionService interface {
	ListStocks(ctx context.Context) ([]models.Symbol, error)
	Predict(ctx context.Context, symbol string, days int) (*models.ForecastResult, error)
}

// EventPublisher ships dashboard transitions to an external sink.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.DashboardEvent) error
	Close() error
}

type Metrics interface {
	RecordCatalogLoad(source string)
	RecordForecast(symbol, outcome string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordUpstreamLatency(op string, seconds float64)
}
