package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ForecastDash/internal/handler/api"
	"ForecastDash/internal/usecase"
	"ForecastDash/pkg/config"
	xhttp "ForecastDash/pkg/http"
	applogger "ForecastDash/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	dashboard  *usecase.Dashboard
	httpServer *xhttp.Server
	hub        *api.Hub
	refresher  *usecase.Refresher

	catalogDone chan struct{}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	dashboard *usecase.Dashboard,
	httpServer *xhttp.Server,
	hub *api.Hub,
	refresher *usecase.Refresher,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		dashboard:   dashboard,
		httpServer:  httpServer,
		hub:         hub,
		refresher:   refresher,
		catalogDone: make(chan struct{}),
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts everything and blocks until ctx is done, then shuts down.
func (a *App) Serve(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// the page is usable with an empty catalog; the list shows up when this lands
	go func() {
		defer close(a.catalogDone)
		source := a.dashboard.LoadCatalog(ctx)
		a.log.Info("catalog ready",
			applogger.String("source", source),
			applogger.Int("count", len(a.dashboard.Stocks())),
		)
	}()

	scheduled := a.refresher != nil && a.refresher.Enabled()
	if scheduled {
		a.refresher.Start()
	}
	a.log.Info("dashboard running",
		applogger.String("addr", a.Addr()),
		applogger.Bool("scheduled_refresh", scheduled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// CatalogLoaded is closed once the startup catalog load has finished.
func (a *App) CatalogLoaded() <-chan struct{} { return a.catalogDone }

// Addr is the bound HTTP address.
func (a *App) Addr() string { return a.httpServer.Addr() }

// shutdown gracefully stops all services. Clients owned by DI (cache, producer)
// are closed by the injector's cleanup after this returns.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	if a.refresher != nil && a.refresher.Enabled() {
		a.refresher.Stop()
	}

	// hub first so websocket writers stop before the listener goes away
	if a.hub != nil {
		a.hub.Close()
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stopErr error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		stopErr = err
	}

	// flush aggregated error logs while the producer is still open
	a.log.DetachAggregator()

	a.log.Info("shutdown complete")
	return stopErr
}
