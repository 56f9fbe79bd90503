package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/nelfi/navigator/internal/app"
	"github.com/nelfi/navigator/internal/config"
)

// runIndex builds the document index once and exits, for deployments
// that index out-of-band instead of on boot.
func runIndex() error {
	logger := initLogger()
	slog.SetDefault(logger)

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
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

	result, err := a.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	fmt.Printf("Indexed %d documents as %d chunks in %s\n",
		result.Documents, result.Chunks, result.Duration.Round(1e6))
	if result.Sampled {
		fmt.Println("No documents found on disk; indexed the built-in sample corpus.")
	}
	return nil
}
