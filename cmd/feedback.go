package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/trispace-io/trispace/internal/app"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/rag"
)

var (
	feedbackRating     int
	feedbackCorrection string
	feedbackListRating int
	feedbackListLimit  int
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Browse and rate recorded interactions",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded interactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			filter := feedback.ListFilter{Limit: int32(feedbackListLimit)}
			if feedbackListRating < 0 {
				filter.Unrated = true
			} else if cmd.Flags().Changed("rating") {
				rating := feedbackListRating
				filter.MinRating = &rating
			}

			interactions, err := a.Feedback.List(ctx, filter)
			if err != nil {
				return err
			}
			for _, in := range interactions {
				rating := "unrated"
				if in.Rating != nil {
					rating = fmt.Sprintf("%d/5", *in.Rating)
				}
				fmt.Printf("%s  [%s]  %s\n", in.ID, rating, truncate(in.Question, 70))
			}
			fmt.Printf("\n%d interactions\n", len(interactions))
			return nil
		})
	},
}

var feedbackRateCmd = &cobra.Command{
	Use:   "rate [interaction-id]",
	Short: "Attach a rating and optional correction to an interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid interaction id %q", args[0])
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			var rating *int
			if cmd.Flags().Changed("rating") {
				rating = &feedbackRating
			}

			if err := a.Feedback.Attach(ctx, id, rating, feedbackCorrection); err != nil {
				return err
			}
			fmt.Println("feedback recorded")

			if rag.ShouldAutoRebuild(rating, feedbackCorrection) {
				count, err := a.Promoter.Rebuild(ctx)
				if err != nil {
					return fmt.Errorf("feedback saved but promotion failed: %w", err)
				}
				fmt.Printf("intent space rebuilt: %d documents\n", count)
			}
			return nil
		})
	},
}

var feedbackFrequentCmd = &cobra.Command{
	Use:   "frequent",
	Short: "Show frequently asked questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			groups, err := a.Feedback.FrequentQuestions(ctx,
				int64(a.Config.FrequentMinCount), int32(feedbackListLimit))
			if err != nil {
				return err
			}
			for _, g := range groups {
				avg := "n/a"
				if g.AvgRating != nil {
					avg = fmt.Sprintf("%.1f", *g.AvgRating)
				}
				fmt.Printf("%4d×  avg %s  %s\n", g.AskCount, avg, truncate(g.Question, 70))
			}
			return nil
		})
	},
}

var feedbackDeleteCmd = &cobra.Command{
	Use:   "delete [interaction-id]",
	Short: "Delete an interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid interaction id %q", args[0])
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if err := a.Feedback.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		})
	},
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func init() {
	feedbackRateCmd.Flags().IntVar(&feedbackRating, "rating", 0, "rating from 0 to 5")
	feedbackRateCmd.Flags().StringVar(&feedbackCorrection, "correction", "", "corrected answer text")
	feedbackListCmd.Flags().IntVar(&feedbackListRating, "rating", 0, "minimum rating, -1 for unrated only")
	feedbackListCmd.Flags().IntVar(&feedbackListLimit, "limit", 50, "maximum rows")
	feedbackFrequentCmd.Flags().IntVar(&feedbackListLimit, "limit", 50, "maximum rows")
	feedbackCmd.AddCommand(feedbackListCmd, feedbackRateCmd, feedbackFrequentCmd, feedbackDeleteCmd)
	rootCmd.AddCommand(feedbackCmd)
}
