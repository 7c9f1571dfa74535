package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"depositrent/internal/infra/config"
	ginserver "depositrent/internal/infra/http/gin"
	"depositrent/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(getenv("APP_ENV", "dev")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(context.Background())

	fixturesPath := getenv("DEPOSITS_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultDepositFixturesPath()
	}
	if err := app.loadDepositFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("deposit fixtures load failed", "error", err, "path", fixturesPath)
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	if app.consumer != nil {
		go func() {
			if err := app.consumer.Run(ctx, app.topics); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", "error", err)
			}
		}()
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logger.Error("http listen failed", "error", err, "addr", cfg.HTTPAddr)
		os.Exit(1)
	}
	logger.Info("HTTP server starting", "addr", listener.Addr().String(), "storage", cfg.StorageMode)
	if err := serve(ctx, server, listener, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

// serve runs server on listener until ctx ends, then returns only after the
// graceful shutdown has drained in-flight requests.
func serve(ctx context.Context, server *http.Server, listener net.Listener, timeout time.Duration, logger *slog.Logger) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}

func defaultDepositFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "deposits.json"),
		filepath.Join("..", "..", "data", "deposits.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
