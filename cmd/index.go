package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trispace-io/trispace/internal/app"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/rag"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector indexes",
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document counts per space",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			for _, collection := range []string{index.CollectionKnowledge, index.CollectionIntent} {
				count, err := a.Index.Count(ctx, collection)
				if err != nil {
					return fmt.Errorf("counting %s: %w", collection, err)
				}
				fmt.Printf("%s: %d documents\n", collection, count)
			}
			return nil
		})
	},
}

var indexRefreshKnowledgeCmd = &cobra.Command{
	Use:   "refresh-knowledge",
	Short: "Rebuild the knowledge space from the knowledge directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			count, err := a.Lifecycle.RefreshKnowledge(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("knowledge space rebuilt: %d documents\n", count)
			return nil
		})
	},
}

var indexRefreshIntentCmd = &cobra.Command{
	Use:   "refresh-intent",
	Short: "Rebuild the intent space from curated pairs and positive feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			count, err := a.Promoter.Rebuild(ctx)
			if err != nil {
				if rag.IsEmptyRebuild(err) {
					return fmt.Errorf("nothing to promote: add Q:/A: files or rate some answers first")
				}
				return err
			}
			fmt.Printf("intent space rebuilt: %d documents\n", count)
			return nil
		})
	},
}

func init() {
	indexCmd.AddCommand(indexStatusCmd, indexRefreshKnowledgeCmd, indexRefreshIntentCmd)
	rootCmd.AddCommand(indexCmd)
}
