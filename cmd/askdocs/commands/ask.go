package commands

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/answer"
	"github.com/askdocs/askdocs-go/internal/logging"
	"github.com/askdocs/askdocs-go/internal/provider"
	"github.com/askdocs/askdocs-go/internal/rag"
	"github.com/askdocs/askdocs-go/internal/tracing"
)

// NewAskCmd constructs the `askdocs ask` command, which retrieves relevant
// chunks for a question and generates a grounded answer.
func NewAskCmd() *cobra.Command {
	var topK int
	var showSources bool
	var retrieveOnly bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question over the indexed documents",
		Long: `Ask a natural language question. The question is embedded, the closest
chunks are retrieved from the index, and the chat model answers using only
that context.

Examples:
  askdocs ask "what is our deployment rollback procedure?"
  askdocs ask --sources "who approves vendor contracts?"
  askdocs ask --retrieve-only "incident response"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Langfuse tracing is opt-in and a no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Debug("langfuse tracing enabled")
			}

			comps, err := openComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer comps.close()

			engine, err := rag.NewEngine(comps.embedder, comps.index, comps.store, log,
				rag.WithTopK(comps.settings.TopK),
				rag.WithMaxDistance(float32(comps.settings.MaxDistance)),
			)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := strings.Join(args, " ")
			results, err := engine.Retrieve(ctx, question, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()

			if retrieveOnly {
				if len(results) == 0 {
					fmt.Fprintln(out, "No matching chunks found.")
					return nil
				}
				fmt.Fprintln(out, rag.FormatContext(results))
				return nil
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}
			answerer, err := answer.New(chatModel, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			reply, err := answerer.Answer(ctx, question, results)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			fmt.Fprintln(out, reply)

			if showSources && len(results) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, r := range results {
					fmt.Fprintf(out, "  %s (part %d, distance %.3f)\n",
						r.Document.Name, r.Chunk.Ordinal+1, r.Distance)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default from config)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "List the source documents after the answer")
	cmd.Flags().BoolVar(&retrieveOnly, "retrieve-only", false, "Print the retrieved chunks without calling the chat model")

	return cmd
}
