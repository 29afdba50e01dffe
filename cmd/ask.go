package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trispace-io/trispace/internal/app"
	"github.com/trispace-io/trispace/internal/rag"
)

var (
	askKIntent       int
	askKKnowledge    int
	askThreshold     float64
	askShowReasoning bool
	askNoRAG         bool
	askShowMetrics   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askKIntent, "k-intent", 0, "intent space hits to consider (0 = config default)")
	askCmd.Flags().IntVar(&askKKnowledge, "k-knowledge", 0, "knowledge space hits to retrieve (0 = config default)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "intent similarity threshold (0 = config default)")
	askCmd.Flags().BoolVar(&askShowReasoning, "reasoning", false, "show the model's reasoning")
	askCmd.Flags().BoolVar(&askNoRAG, "no-rag", false, "answer without retrieval")
	askCmd.Flags().BoolVar(&askShowMetrics, "metrics", false, "print quality estimates")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
		if err := a.Lifecycle.LoadOrCreate(ctx); err != nil {
			return fmt.Errorf("loading indexes: %w", err)
		}

		// Stream tokens as they arrive; intent cache hits print whole.
		streamed := false
		stream := func(ctx context.Context, chunk string) error {
			streamed = true
			_, err := fmt.Print(chunk)
			return err
		}

		var result *rag.Result
		var err error
		if askNoRAG {
			result, err = a.Orchestrator.AnswerDirect(ctx, question, askShowReasoning, stream)
		} else {
			params := a.Orchestrator.DefaultParams()
			if askKIntent > 0 {
				params.KIntent = askKIntent
			}
			if askKKnowledge > 0 {
				params.KKnowledge = askKKnowledge
			}
			if askThreshold > 0 {
				params.IntentThreshold = askThreshold
			}
			params.WithReasoning = askShowReasoning
			result, err = a.Orchestrator.Answer(ctx, question, params, stream)
		}
		if err != nil {
			return err
		}

		if streamed {
			fmt.Println()
		} else {
			if askShowReasoning && result.Reply.Reasoning != "" {
				fmt.Fprintf(os.Stderr, "reasoning: %s\n\n", result.Reply.Reasoning)
			}
			fmt.Println(result.Reply.Answer)
		}

		if result.UsedIntent {
			fmt.Fprintf(os.Stderr, "\n(answered from intent cache, score %.3f)\n", result.IntentScore)
		}
		if sources := result.Sources(); len(sources) > 0 && !result.UsedIntent {
			fmt.Fprintf(os.Stderr, "\nsources: %s\n", strings.Join(sources, ", "))
		}

		if askShowMetrics {
			printMetrics(rag.Evaluate(result, 0))
		}
		return nil
	})
}

func printMetrics(m rag.Metrics) {
	fmt.Fprintln(os.Stderr, "\nquality estimates:")
	display := rag.FormatMetrics(m)
	for _, key := range []string{
		"retrieved_documents", "max_similarity", "avg_similarity",
		"confidence", "precision", "recall", "f1_score",
	} {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", key, display[key])
	}
}
