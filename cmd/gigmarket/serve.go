package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/gigmarket/internal/config"
	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/middleware"
	"github.com/vango-dev/gigmarket/pkg/search"
	"github.com/vango-dev/gigmarket/pkg/server"
	"github.com/vango-dev/gigmarket/pkg/session"
	"github.com/vango-dev/gigmarket/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		dir  string
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server",
		Long: `Run the HTTP and WebSocket server.

Configuration is read from gigmarket.json in --dir when present, then
overridden by environment variables (GIGMARKET_API_URL, REDIS_URL,
MEILI_URL, UPLOAD_BACKEND, ...).

Examples:
  gigmarket serve
  gigmarket serve --port=9000
  GIGMARKET_API_URL=http://api:8000 gigmarket serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory containing gigmarket.json")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from gigmarket.json)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from gigmarket.json)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log, os.Stderr).With("app", cfg.Name)
	slog.SetDefault(logger)

	client, err := api.New(cfg.Backend.URL,
		api.WithTimeout(cfg.BackendTimeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	checks := make(map[string]server.Pinger)

	store, err := newSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if p, ok := store.(server.Pinger); ok {
		checks["sessions"] = p
	}
	manager := session.NewManager(store, session.ManagerConfig{
		ResumeWindow: cfg.ResumeWindow(),
	}, logger)

	uploadStore, err := newUploadStore(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	uploader := upload.NewUploader(uploadStore, &upload.Config{
		MaxFileSize: cfg.Upload.MaxSize,
		Prefix:      cfg.Upload.Prefix,
	})

	var (
		searcher search.Searcher
		indexer  search.Indexer
	)
	if cfg.Search.URL != "" {
		meili := search.NewMeili(cfg.Search.URL, cfg.Search.APIKey, logger, search.WithIndex(cfg.Search.Index))
		defer meili.Close()
		searcher, indexer = meili, meili
	} else {
		logger.Warn("search.url not set, using the in-memory index")
		mem := search.NewMemory()
		searcher, indexer = mem, mem
	}

	opts := server.Options{
		Config: server.Config{
			Address:         cfg.Address(),
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			TrustedProxies:  cfg.Server.TrustedProxies,
			ShutdownTimeout: cfg.ShutdownTimeout(),
			Session: session.Config{
				HeartbeatInterval: cfg.HeartbeatInterval(),
			},
			PageSize:   cfg.Views.PageSize,
			MaxStarred: cfg.Views.MaxStarred,
		},
		Client:   client,
		Sessions: manager,
		Uploader: uploader,
		Searcher: searcher,
		Indexer:  indexer,
		Tracing:  true,
		Tracer:   middleware.NewTraceObserver(),
		Checks:   checks,
		Logger:   logger,
	}
	if cfg.Upload.Backend == config.UploadDisk && cfg.Upload.PublicURL == "" {
		opts.Media = http.FileServer(http.Dir(cfg.Upload.Dir))
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Metrics = middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		opts.Gatherer = reg
	}

	fmt.Printf("\n  gigmarket %s\n\n", version)
	info("Listening:  http://%s", cfg.Address())
	info("Backend:    %s", cfg.Backend.URL)
	info("Uploads:    %s", cfg.Upload.Backend)
	fmt.Println()

	return server.New(opts).Run(ctx)
}

// newLogger builds the slog handler selected by cfg.
func newLogger(cfg config.LogConfig, w *os.File) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
