package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/indexer"
	"github.com/askdocs/askdocs-go/internal/logging"
)

// NewReloadCmd constructs the `askdocs reload` command, which synchronises
// the index with the docs directory.
func NewReloadCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Scan the docs directory and index new or changed documents",
		Long: `Scan the configured docs directory and bring the index up to date.

Documents are diffed by content hash: unchanged files are skipped, new and
modified files are extracted, chunked, and embedded, and files deleted from
disk are removed from the index. Use --full to wipe the store and index and
re-embed everything from scratch, e.g. after switching embedding models.

Examples:
  askdocs reload
  askdocs reload --full
  ASKDOCS_DOCS_DIR=~/notes askdocs reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := openComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("reload: %w", err)
			}
			defer comps.close()

			stats, err := comps.orch.Reload(ctx, indexer.Options{Full: full})
			if err != nil {
				return fmt.Errorf("reload: %w", err)
			}

			printRunStats(cmd, stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Wipe the store and index, then re-extract and re-embed every document")

	return cmd
}

// printRunStats renders a reload summary to the command's stdout.
func printRunStats(cmd *cobra.Command, stats *indexer.RunStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reload finished in %s\n", stats.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(out, "  discovered: %d  new: %d  modified: %d  unchanged: %d  removed: %d\n",
		stats.DocsDiscovered, stats.DocsNew, stats.DocsModified, stats.DocsUnchanged, stats.DocsRemoved)
	fmt.Fprintf(out, "  chunks indexed: %d\n", stats.ChunksIndexed)
	if stats.DocsFailed > 0 {
		fmt.Fprintf(out, "  documents failed: %d (see logs)\n", stats.DocsFailed)
	}
	if stats.ChunksFailed > 0 {
		fmt.Fprintf(out, "  chunks without embedding: %d (rerun reload to retry)\n", stats.ChunksFailed)
	}
	if stats.IndexRebuilt {
		fmt.Fprintln(out, "  vector index was rebuilt from the store")
	}
}
