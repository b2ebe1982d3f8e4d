// Package internal wires configuration, storage, the manifest, and the
// migration pipeline into a runnable application.
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

	"github.com/starford/ehwaz/internal/api"
	"github.com/starford/ehwaz/internal/manifest"
	"github.com/starford/ehwaz/internal/migrate"
	"github.com/starford/ehwaz/internal/sse"
	"github.com/starford/ehwaz/internal/storage"
)

// Run executes the application with the given options. Every invocation
// performs one full migration pass; with WithWatch it then keeps mirroring
// source changes into the target and serves the HTTP API until interrupted.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg.App.SlogLevel())
	logger.Info("configuration loaded",
		slog.String("source_path", cfg.Source.Path),
		slog.String("target_path", cfg.Target.Path),
		slog.String("manifest_path", cfg.Manifest.Path),
		slog.String("log_level", cfg.App.SlogLevel().String()),
		slog.Bool("watch", app.watch))

	source, err := storage.NewSource(cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	target, err := storage.NewTarget(cfg.Target.Path)
	if err != nil {
		return fmt.Errorf("init target: %w", err)
	}
	db, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("init manifest: %w", err)
	}
	defer db.Close()

	m := migrate.New(source, target, db, logger, migrate.Options{
		Workers:     cfg.Migrate.Workers,
		Incremental: cfg.Migrate.Incremental,
		DryRun:      cfg.Migrate.DryRun,
		ResourceDir: cfg.Migrate.ResourceDir,
	})

	if _, err := m.Run(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if !app.watch {
		return nil
	}
	return watchAndServe(ctx, cfg, m, db, logger)
}

// newLogger builds the JSON logger and installs it as the process default.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// watchAndServe mirrors source changes into the target and serves the HTTP
// API until a shutdown signal arrives or the watcher fails.
func watchAndServe(ctx context.Context, cfg *Config, m *migrate.Migrator, db *manifest.DB, logger *slog.Logger) error {
	broker := sse.NewBroker(2 * time.Second)
	server := newHTTPServer(cfg, db, broker)

	g, gCtx := errgroup.WithContext(ctx)

	// The watcher gets its own cancel so the shutdown goroutine can stop it;
	// gCtx alone only cancels once a goroutine returns an error.
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	g.Go(func() error {
		return m.Watch(watchCtx, func(kind, path string) {
			broker.PublishMigration(kind, path)
		})
	})

	g.Go(func() error {
		logger.Info("http server listening", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForShutdown(gCtx, logger)

		// Stop the watcher first, then close the broker so blocked SSE
		// handlers return before the HTTP server drains connections.
		stopWatch()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("watch mode failed", slog.String("error", err.Error()))
		return err
	}
	logger.Info("stopped")
	return nil
}

// newHTTPServer assembles the router (health endpoints, mounted API, SSE)
// and the server around it.
func newHTTPServer(cfg *Config, db *manifest.DB, broker *sse.Broker) *http.Server {
	svc := api.NewService(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// waitForShutdown blocks until a SIGINT/SIGTERM arrives or the group
// context is cancelled by a failing goroutine.
func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down after failure")
	}
}
