package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"ForecastDash/pkg/http/middleware"
	"ForecastDash/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption tunes NewServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	host            string
	port            int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	cors            bool
	metricsPath     string
	slowThreshold   time.Duration
	log             *logger.Logger
}

// Server is the Echo instance plus the listener it serves on.
type Server struct {
	echo     *echo.Echo
	opts     serverOptions
	log      *logger.Logger
	listener net.Listener
}

// NewServer builds the Echo stack: recovery, request logging, optional metrics
// and CORS, then /health, the handler's routes and the scrape endpoint.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	o := serverOptions{
		host:            "0.0.0.0",
		port:            8080,
		readTimeout:     10 * time.Second,
		writeTimeout:    10 * time.Second,
		shutdownTimeout: 10 * time.Second,
		cors:            true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}

	s := &Server{echo: echo.New(), opts: o, log: o.log}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = o.readTimeout
	s.echo.Server.WriteTimeout = o.writeTimeout

	s.useMiddleware()
	s.mountRoutes(handler)
	return s
}

func (s *Server) useMiddleware() {
	s.echo.Use(middleware.Recover(s.log), middleware.RequestLogging(s.log))
	if s.opts.metricsPath != "" {
		s.echo.Use(middleware.Metrics(s.log, s.opts.slowThreshold))
	}
	if s.opts.cors {
		s.echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func (s *Server) mountRoutes(handler Handler) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if handler != nil {
		handler.RegisterRoutes(s.echo)
	}
	if s.opts.metricsPath != "" {
		s.echo.GET(s.opts.metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
}

// Start binds synchronously so a port conflict is returned here; serving
// continues in the background until Stop.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.host, strconv.Itoa(s.opts.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.echo.Listener = ln
	s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))

	go func() {
		err := s.echo.Start("")
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped unexpectedly", logger.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests. Without a deadline on ctx the configured
// shutdown timeout applies.
func (s *Server) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && s.opts.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.shutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo { return s.echo }

func WithHost(host string) ServerOption {
	return func(o *serverOptions) { o.host = host }
}

func WithPort(port int) ServerOption {
	return func(o *serverOptions) { o.port = port }
}

// WithTimeouts sets the read, write and shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.readTimeout, o.writeTimeout, o.shutdownTimeout = read, write, shutdown
	}
}

func WithCORS(enabled bool) ServerOption {
	return func(o *serverOptions) { o.cors = enabled }
}

// WithMetrics mounts the Prometheus handler at path and records per-route
// request metrics. Requests slower than slowThreshold are logged.
func WithMetrics(path string, slowThreshold time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.metricsPath, o.slowThreshold = path, slowThreshold
	}
}

func WithLogger(l *logger.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}
