package main

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
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/api"
	"github.com/tendant/library-store/pkg/libstore/config"
)

const maxRequestBytes = 32 << 20

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	cfg.Logger = logger

	// BuildService may have opened the database before failing.
	svc, err := cfg.BuildService()
	defer cfg.Close()
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(svc, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Library store server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"default_storage", cfg.DefaultStorageBackend,
			"storage_backends", len(cfg.StorageBackends),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}

func newRouter(svc libstore.Service, cfg *config.ServerConfig, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		api.RequestIDMiddleware,
		api.RecoveryMiddleware(logger),
		api.LoggingMiddleware(logger),
		api.RequestSizeLimitMiddleware(maxRequestBytes),
	)

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		backends := make([]string, 0, len(cfg.StorageBackends))
		for _, backend := range cfg.StorageBackends {
			backends = append(backends, fmt.Sprintf("%s (%s)", backend.Name, backend.Type))
		}
		render.JSON(w, r, map[string]interface{}{
			"environment":                cfg.Environment,
			"database_type":              cfg.DatabaseType,
			"default_storage_backend":    cfg.DefaultStorageBackend,
			"available_storage_backends": backends,
			"enable_event_logging":       cfg.EnableEventLogging,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/libraries", api.NewLibraryHandler(svc, logger).Routes())
	})
	return r
}

// newLogger logs JSON in production and colored text elsewhere.
func newLogger(cfg *config.ServerConfig) *slog.Logger {
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}
