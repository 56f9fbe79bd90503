package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/nelfi/navigator/internal/api"
	"github.com/nelfi/navigator/internal/app"
	"github.com/nelfi/navigator/internal/config"
	"github.com/nelfi/navigator/internal/log"
)

// runServe initializes the application and serves HTTP until SIGINT or
// SIGTERM.
func runServe() error {
	logger := initLogger()
	slog.SetDefault(logger)

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseServeAddr()
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	// Index on boot when the documents table is empty, so a fresh
	// deployment can answer grounded questions immediately.
	if err := ensureIndexed(ctx, a, logger); err != nil {
		return err
	}

	server := api.NewServer(api.Deps{
		Store:     a.Chatlog,
		Engine:    a.Engine,
		Reindexer: a,
		Pinger:    a.DBPool,
		Info: api.ServiceInfo{
			Name:           "NELFI - NELFUND Navigator",
			Version:        AppVersion,
			Model:          cfg.ModelName,
			EmbeddingModel: cfg.EmbedderModel,
			Provider:       cfg.Provider,
		},
		Logger: log.Named(logger, "api"),
	})

	logger.Info("HTTP server ready", "addr", addr, "version", AppVersion)
	return server.Run(ctx, addr)
}

// ensureIndexed indexes on boot only when the documents table is empty,
// so a fresh deployment starts grounded without wiping a populated index.
func ensureIndexed(ctx context.Context, a *app.App, logger log.Logger) error {
	count, err := a.DocumentCount(ctx)
	if err != nil {
		return fmt.Errorf("checking document index: %w", err)
	}
	if count > 0 {
		logger.Debug("document index present", "chunks", count)
		return nil
	}

	result, err := a.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("building initial index: %w", err)
	}
	logger.Info("document index built",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"sampled", result.Sampled)
	return nil
}
