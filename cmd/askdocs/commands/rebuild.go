package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/logging"
)

// NewRebuildCmd constructs the `askdocs rebuild` command, which regenerates
// the vector index from the metadata store.
func NewRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector index from stored embeddings",
		Long: `Discard the on-disk vector index and rebuild it from the embeddings held
in the metadata store. No documents are re-read and nothing is re-embedded.

Useful after an index file was deleted or corrupted, or to verify the index
matches the store. Reload also does this automatically when it detects the
two have diverged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := openComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			defer comps.close()

			if err := comps.orch.RebuildIndex(ctx); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}

			stats := comps.index.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Index rebuilt: %d vectors, dimension %d\n",
				stats.VectorCount, stats.Dimension)
			return nil
		},
	}
}
