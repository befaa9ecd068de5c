package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/logging"
)

// NewStatusCmd constructs the `askdocs status` command, which prints the
// current store and index counts.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show document, chunk, and vector counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			comps, err := openComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			defer comps.close()

			status, err := comps.orch.Status(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docs dir:        %s\n", comps.settings.DocsDir)
			fmt.Fprintf(out, "database:        %s\n", comps.settings.DBPath)
			fmt.Fprintf(out, "index dir:       %s\n", comps.settings.IndexDir)
			fmt.Fprintf(out, "documents:       %d\n", status.Documents)
			fmt.Fprintf(out, "chunks:          %d (%d embedded)\n", status.Chunks, status.EmbeddedChunks)
			fmt.Fprintf(out, "index vectors:   %d (dimension %d)\n", status.IndexVectors, status.IndexDimension)
			if status.Drift {
				fmt.Fprintln(out, "warning: index and store disagree; run 'askdocs rebuild'")
			}
			return nil
		},
	}
}
