// Package cmd implements the trispace command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/trispace-io/trispace/internal/app"
	"github.com/trispace-io/trispace/internal/config"
	"github.com/trispace-io/trispace/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "trispace",
	Short: "trispace - retrieval-augmented question answering service",
	Long: `trispace answers questions from a knowledge base, caching curated and
well-rated answers in an intent space that is consulted before any
model call. Run "trispace serve" to start the HTTP API, or
"trispace ask" to query from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG in the environment enables
// debug level; LOG_JSON switches to JSON output for log collectors.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}

// withApp loads configuration, initializes the application, and runs fn
// with it, closing everything afterwards. Shared by every subcommand that
// needs live components.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}
