// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/kdoc/internal/api"
	"github.com/starford/kdoc/internal/docservice"
	"github.com/starford/kdoc/internal/index"
	"github.com/starford/kdoc/internal/mcpserver"
	"github.com/starford/kdoc/internal/sse"
	"github.com/starford/kdoc/internal/storage"
)

const indexEventThrottle = 2 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(app.logger)
	return app, nil
}

// openStore opens the document directory and its index and brings the
// index in line with the files on disk.
func (a *application) openStore() (*storage.FS, *index.DB, error) {
	cfg := a.config
	store, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, a.logger); err != nil {
		a.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return store, db, nil
}

// Run starts the document host: REST API, SSE events and the directory
// watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("max_upload_mb", cfg.Images.MaxUploadMB),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := app.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	broker := sse.NewBroker(indexEventThrottle)
	defer broker.Close()

	svc := docservice.NewService(store, db, docservice.Options{
		MaxImageBytes: cfg.Images.MaxBytes(),
		Events:        broker,
		Logger:        logger,
		Version:       app.version,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Files dropped into the directory by hand reach clients as events.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, store.Root(), logger, func(kind, name string) {
			broker.PublishDocumentEvent(kind, name)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the KDOC tools over stdio against the configured store.
func RunMCP(_ context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	store, db, err := app.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := docservice.NewService(store, db, docservice.Options{
		MaxImageBytes: app.config.Images.MaxBytes(),
		Logger:        app.logger,
		Version:       app.version,
	})
	app.logger.Info("Serving MCP on stdio", slog.String("store_path", store.Root()))
	return mcpserver.New(svc, app.version).ServeStdio()
}
