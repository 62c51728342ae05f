package usecase

import (
	"context"
	"time"

	"ForecastDash/internal/domain/models"
	drepo "ForecastDash/internal/domain/repository"
	"ForecastDash/pkg/logger"
)

const (
	CatalogSourceService  = "service"
	CatalogSourceFallback = "fallback"
)

// CatalogLoader fetches the symbol catalog once, absorbing every failure into the fallback list.
type CatalogLoader struct {
	svc     drepo.PredictionService
	metrics drepo.Metrics
	log     *logger.Logger
	timeout time.Duration
}

func NewCatalogLoader(svc drepo.PredictionService, metrics drepo.Metrics, log *logger.Logger, timeout time.Duration) *CatalogLoader {
	return &CatalogLoader{svc: svc, metrics: metrics, log: log, timeout: timeout}
}

// Load returns the catalog and where it came from. It never fails.
func (l *CatalogLoader) Load(ctx context.Context) ([]models.Symbol, string) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	stocks, err := l.svc.ListStocks(ctx)
	switch {
	case err != nil:
		l.log.Warn("catalog unavailable, using built-in list", logger.Error(err))
	case len(stocks) == 0:
		l.log.Warn("catalog empty, using built-in list")
	default:
		l.metrics.RecordCatalogLoad(CatalogSourceService)
		l.log.Info("catalog loaded", logger.Int("count", len(stocks)))
		return stocks, CatalogSourceService
	}

	l.metrics.RecordCatalogLoad(CatalogSourceFallback)
	return models.FallbackCatalog(), CatalogSourceFallback
}
