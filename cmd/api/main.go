package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pmcbot/internal/app"
	"pmcbot/internal/config"
	"pmcbot/internal/contextutil"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers citizen questions about Pune Municipal Corporation records in English and Marathi.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: PMC Assistant API
//   description: |
//     Conversational retrieval API over normalized PMC records (circulars, gardens, hospitals, schools and more).
//     Sessions keep a short history so follow-up questions resolve against the previous turn.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, logger)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Validate embedding client vector size (fail-fast)
	if err := a.CheckEmbeddings(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	slog.Info("Embedding client validated", "vector_size", cfg.VectorSize)

	if cfg.RecordsPath != "" {
		go func() {
			slog.Info("Starting background ingestion", "path", cfg.RecordsPath)
			stats, err := a.Pipeline.IngestFile(ctx, cfg.RecordsPath)
			if err != nil {
				slog.Error("Ingestion failed", "error", err)
				return
			}
			slog.Info("Ingestion completed", "embedded", stats.RecordsEmbedded, "unchanged", stats.RecordsUnchanged, "failed", stats.RecordsFailed)
		}()
	}

	srv := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
