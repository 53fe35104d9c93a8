package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksato/raggate/internal/cache"
	"github.com/ksato/raggate/internal/config"
	"github.com/ksato/raggate/internal/gate"
	"github.com/ksato/raggate/internal/history"
	"github.com/ksato/raggate/internal/metrics"
	"github.com/ksato/raggate/internal/retrieval"
	"github.com/ksato/raggate/internal/server"
	"github.com/ksato/raggate/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting retrieval gateway",
		"http_port", cfg.HTTPPort,
		"retrieval_url", cfg.RetrievalURL,
		"environment", cfg.Environment,
	)

	// Retrieval backend client
	retriever := retrieval.NewClient(retrieval.ClientConfig{
		BaseURL: cfg.RetrievalURL,
		Timeout: cfg.RetrievalTimeout,
	})

	// Usage recorders: Prometheus always, query history only when a
	// database is configured.
	recorders := []service.Recorder{metrics.NewQueryRecorder()}
	if cfg.DatabaseURL != "" {
		repo, err := history.New(ctx, cfg.DatabaseURL, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer repo.Close()
		slog.Info("connected to PostgreSQL for query history")
		recorders = append(recorders, repo)
	}

	// Result cache and pipeline
	store := cache.New(cache.WithLogger(slog.Default()))
	querySvc := service.NewQueryService(retriever, store,
		service.WithRecorder(service.MultiRecorder(recorders...)),
		service.WithGate(gate.Gate{
			MinSimilarity:      cfg.MinSimilarity,
			MinUniqueDocuments: cfg.MinUniqueDocuments,
		}),
		service.WithTTLs(cfg.SimpleQueryTTL, cfg.ComplexQueryTTL),
		service.WithLogger(slog.Default()),
	)

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
		APIKey:         cfg.APIKey,
		AdminAPIKey:    cfg.AdminAPIKey,
	}, querySvc)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ retrieval.Retriever   = (*retrieval.Client)(nil)
	_ server.QueryProcessor = (*service.QueryService)(nil)
	_ service.Recorder      = (*history.Repo)(nil)
	_ service.Recorder      = (*metrics.QueryRecorder)(nil)
)
