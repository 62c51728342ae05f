package di

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"ForecastDash/internal/domain/repository"
	"ForecastDash/internal/handler/api"
	"ForecastDash/internal/handler/web"
	internalrepo "ForecastDash/internal/repository"
	"ForecastDash/internal/service/predictor"
	"ForecastDash/internal/service/ratelimit"
	"ForecastDash/internal/usecase"
	"ForecastDash/pkg/cache"
	"ForecastDash/pkg/config"
	xhttp "ForecastDash/pkg/http"
	pkgkafka "ForecastDash/pkg/kafka"
	"ForecastDash/pkg/logger"
	"ForecastDash/pkg/metrics"
	"ForecastDash/pkg/server"
)

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvideCache builds the configured cache. Backend "none" yields a nil Service.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, func(), error) {
	c, err := cache.Open(context.Background(), cache.Config{
		Backend:  cfg.Cache.Backend,
		MaxItems: cfg.Cache.MemoryMaxSize,
		Redis: cache.RedisConfig{
			Addr:     net.JoinHostPort(cfg.Cache.Redis.Host, strconv.Itoa(cfg.Cache.Redis.Port)),
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}
	if c == nil {
		return nil, func() {}, nil
	}
	log.Info("cache ready", logger.String("backend", cfg.Cache.Backend))
	return c, func() {
		if err := c.Close(); err != nil {
			log.Warn("cache close error", logger.Error(err))
		}
	}, nil
}

// ProvidePredictorClient creates the HTTP client for the prediction service.
func ProvidePredictorClient(cfg *config.Config, m repository.Metrics) *predictor.Client {
	return predictor.New(cfg.Prediction.BaseURL, cfg.Prediction.Timeout, m)
}

// ProvidePredictionService puts the cache in front of the client when one is configured.
func ProvidePredictionService(client *predictor.Client, c cache.Service, log *logger.Logger, cfg *config.Config) repository.PredictionService {
	if c == nil {
		return client
	}
	return predictor.NewCached(client, c, log, cfg.Cache.CatalogTTL, cfg.Cache.ForecastTTL)
}

// ProvideEventPublisher creates the Kafka event publisher, or a no-op one when
// events are disabled. It also attaches the error log aggregator when asked to.
func ProvideEventPublisher(cfg *config.Config, log *logger.Logger) (repository.EventPublisher, func(), error) {
	if !cfg.Events.Enabled {
		return internalrepo.NoopPublisher{}, func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Events.Brokers,
		Compression:  cfg.Events.Compression,
		RequiredAcks: cfg.Events.RequiredAcks,
		WriteTimeout: cfg.Events.WriteTimeout,
		Async:        cfg.Events.Async,
		HashByKey:    true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Events.Topic, log)

	if cfg.Events.ErrorLogs.Enabled {
		log.AttachAggregator(logger.NewErrorAggregator(logger.AggregatorConfig{
			Interval:  cfg.Events.ErrorLogs.Interval,
			Threshold: cfg.Events.ErrorLogs.Threshold,
			Topic:     cfg.Events.ErrorLogs.Topic,
			Publisher: pub,
		}))
	}
	log.Info("kafka events enabled",
		logger.Strings("brokers", cfg.Events.Brokers),
		logger.String("topic", cfg.Events.Topic),
	)

	return pub, func() {
		log.DetachAggregator()
		if err := pub.Close(); err != nil {
			log.Warn("kafka producer close error", logger.Error(err))
		}
	}, nil
}

// ProvideCatalogLoader creates the catalog loader.
func ProvideCatalogLoader(svc repository.PredictionService, m repository.Metrics, log *logger.Logger, cfg *config.Config) *usecase.CatalogLoader {
	return usecase.NewCatalogLoader(svc, m, log, cfg.Prediction.Timeout)
}

// ProvideDashboard creates the shared dashboard and hooks the event publisher to it.
func ProvideDashboard(
	svc repository.PredictionService,
	loader *usecase.CatalogLoader,
	m repository.Metrics,
	log *logger.Logger,
	pub repository.EventPublisher,
	cfg *config.Config,
) *usecase.Dashboard {
	d := usecase.NewDashboard(svc, loader, m, log, cfg.Prediction.Timeout)
	if kp, ok := pub.(*internalrepo.KafkaPublisher); ok {
		d.Subscribe(kp.Listen(cfg.Events.WriteTimeout))
	}
	return d
}

// ProvideRateLimiter creates the per-client limiter guarding the forecast endpoint.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Dashboard.RateLimit.Capacity, cfg.Dashboard.RateLimit.RefillPerSec, cfg.Dashboard.RateLimit.IdleTTL)
}

// ProvideDashboardHandler creates the JSON API handler.
func ProvideDashboardHandler(log *logger.Logger, d *usecase.Dashboard, rl *ratelimit.Limiter) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(log, d, rl.Middleware())
}

// ProvideHub creates the websocket hub.
func ProvideHub(log *logger.Logger, d *usecase.Dashboard, cfg *config.Config) *api.Hub {
	return api.NewHub(log, d, cfg.Dashboard.PingInterval)
}

// ProvidePageHandler creates the server-rendered page.
func ProvidePageHandler(log *logger.Logger, d *usecase.Dashboard, cfg *config.Config) *web.PageHandler {
	return web.NewPageHandler(log, d, cfg.Dashboard.Title)
}

// ProvideHTTPServer creates the Echo server with every handler mounted.
func ProvideHTTPServer(
	cfg *config.Config,
	log *logger.Logger,
	dh *api.DashboardEchoHandler,
	hub *api.Hub,
	page *web.PageHandler,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Server.SlowThreshold))
	}
	return xhttp.NewServer(xhttp.Handlers{dh, hub, page}, opts...)
}

// ProvideRefresher registers the scheduled refresh, if any.
func ProvideRefresher(d *usecase.Dashboard, log *logger.Logger, cfg *config.Config) (*usecase.Refresher, error) {
	return usecase.NewRefresher(context.Background(), d, log, cfg.Dashboard.RefreshCron)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	d *usecase.Dashboard,
	srv *xhttp.Server,
	hub *api.Hub,
	refresher *usecase.Refresher,
) *server.App {
	return server.New(cfg, log, d, srv, hub, refresher)
}
