package predictor

import (
	"context"
	"errors"
	"time"

	"ForecastDash/internal/domain/models"
	drepo "ForecastDash/internal/domain/repository"
	"ForecastDash/pkg/cache"
	"ForecastDash/pkg/logger"
)

const (
	catalogKeyPrefix  = "catalog"
	forecastKeyPrefix = "forecast"
)

// Cached decorates a PredictionService with read-through caching. A zero TTL
// disables caching for that call kind. Cache failures fall through to the service.
type Cached struct {
	next        drepo.PredictionService
	cache       cache.Service
	log         *logger.Logger
	catalogTTL  time.Duration
	forecastTTL time.Duration
}

func NewCached(next drepo.PredictionService, c cache.Service, log *logger.Logger, catalogTTL, forecastTTL time.Duration) *Cached {
	if log == nil {
		log = logger.Nop()
	}
	return &Cached{
		next:        next,
		cache:       c,
		log:         log,
		catalogTTL:  catalogTTL,
		forecastTTL: forecastTTL,
	}
}

func (c *Cached) ListStocks(ctx context.Context) ([]models.Symbol, error) {
	if c.catalogTTL <= 0 {
		return c.next.ListStocks(ctx)
	}
	key := cache.Key(catalogKeyPrefix)

	var hit []models.Symbol
	if c.lookup(ctx, key, &hit) && len(hit) > 0 {
		return hit, nil
	}

	stocks, err := c.next.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	// an empty list triggers the fallback upstream; do not pin it
	if len(stocks) > 0 {
		c.store(ctx, key, stocks, c.catalogTTL)
	}
	return stocks, nil
}

func (c *Cached) Predict(ctx context.Context, symbol string, days int) (*models.ForecastResult, error) {
	if c.forecastTTL <= 0 {
		return c.next.Predict(ctx, symbol, days)
	}
	key := cache.Key(forecastKeyPrefix, symbol, days)

	var hit models.ForecastResult
	if c.lookup(ctx, key, &hit) && hit.Predictions != nil {
		return &hit, nil
	}

	res, err := c.next.Predict(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, res, c.forecastTTL)
	return res, nil
}

func (c *Cached) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := c.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("cache get failed", logger.String("key", key), logger.Error(err))
	}
	return false
}

func (c *Cached) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, v, ttl); err != nil {
		c.log.Warn("cache set failed", logger.String("key", key), logger.Error(err))
	}
}
