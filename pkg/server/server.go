package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/middleware"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
	"github.com/vango-dev/gigmarket/pkg/search"
	"github.com/vango-dev/gigmarket/pkg/session"
	"github.com/vango-dev/gigmarket/pkg/upload"
	"github.com/vango-dev/gigmarket/pkg/views"
)

// Config holds the listener settings.
type Config struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// AllowedOrigins lists origins accepted for WebSocket upgrades. "*"
	// accepts any origin. Empty means same-origin only.
	AllowedOrigins []string

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed.
	TrustedProxies []string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// Session holds the per-connection limits.
	Session session.Config

	// Limits are passed to every dashboard. Zero uses the view defaults.
	PageSize   int
	MaxStarred int
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	return c
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Options are the collaborators of a Server. Client and Sessions are
// required; the rest are optional.
type Options struct {
	Config   Config
	Client   *api.Client
	Sessions *session.Manager

	Uploader *upload.Uploader
	Searcher search.Searcher
	Indexer  search.Indexer

	// Metrics enables the Prometheus collectors; Gatherer serves them on
	// /metrics.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer

	// Tracing wraps every request in a server span.
	Tracing bool
	Tracer  *middleware.TraceObserver

	// Media serves the disk upload directory under /media/.
	Media http.Handler

	// Checks are run by /healthz, keyed by name.
	Checks map[string]Pinger

	Logger *slog.Logger
}

// Server is the HTTP and WebSocket front of the dashboard.
type Server struct {
	config   Config
	opts     Options
	router   chi.Router
	upgrader websocket.Upgrader
	proxies  *proxyMatcher
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates a Server and builds its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")
	cfg := opts.Config.withDefaults()

	s := &Server{
		config:  cfg,
		opts:    opts,
		proxies: newProxyMatcher(cfg.TrustedProxies, logger),
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if s.opts.Tracing {
		r.Use(middleware.Tracing())
	}
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.HTTP)
	}

	r.Get("/ws", s.handleWebSocket)
	r.Get("/search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	if s.opts.Uploader != nil {
		r.Method(http.MethodPost, "/uploads/avatar", upload.Handler(s.opts.Uploader, s.logger))
	}
	if s.opts.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", s.opts.Media))
	}
	if s.opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// env is the dashboard environment template shared by every session.
func (s *Server) env() views.Env {
	var observers optimistic.Observers
	if s.opts.Metrics != nil {
		observers = append(observers, s.opts.Metrics)
	}
	if s.opts.Tracer != nil {
		observers = append(observers, s.opts.Tracer)
	}
	env := views.Env{
		Client:     s.opts.Client,
		Uploader:   s.opts.Uploader,
		Searcher:   s.opts.Searcher,
		Indexer:    s.opts.Indexer,
		PageSize:   s.config.PageSize,
		MaxStarred: s.config.MaxStarred,
		Logger:     s.logger,
	}
	if len(observers) > 0 {
		env.Observer = observers
	}
	return env
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections, then closes and saves every
// session.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	if err := s.opts.Sessions.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
