package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trispace-io/trispace/api"
	"github.com/trispace-io/trispace/internal/app"
	"github.com/trispace-io/trispace/internal/docs"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		// Bring both spaces up before accepting traffic so the first
		// query never races the initial load.
		if err := a.Lifecycle.LoadOrCreate(ctx); err != nil {
			return fmt.Errorf("loading indexes: %w", err)
		}

		addr := serveAddr
		if addr == "" {
			addr = a.Config.ListenAddr
		}

		loader := docs.NewLoader(nil, a.Logger)
		server := api.NewServer(api.Deps{
			DB:           a.DBPool,
			Orchestrator: a.Orchestrator,
			Feedback:     a.Feedback,
			Promoter:     a.Promoter,
			Lifecycle:    a.Lifecycle,
			IntentSource: loader,
			IntentDir:    a.Config.IntentDir,
			Logger:       a.Logger,
		})

		return server.Run(ctx, addr)
	})
}
