// Package commands defines all Cobra CLI commands for the askdocs binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/audit"
	"github.com/askdocs/askdocs-go/internal/config"
	"github.com/askdocs/askdocs-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "askdocs",
		Short: "Index local documents and ask questions over them",
		Long: `askdocs is a local-first question answering tool for your own documents.

Point it at a directory of txt, md, pdf, and docx files, run 'askdocs reload'
to build the embedding index, then query it with 'askdocs ask'. Everything is
stored locally: metadata in SQLite, vectors in a flat index on disk.

The embedding and chat backends are selected via environment variables or a
YAML config file (~/.askdocs/config.yaml).
See 'askdocs --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.askdocs/config.yaml)")

	root.AddCommand(
		NewReloadCmd(),
		NewRebuildCmd(),
		NewStatusCmd(),
		NewAskCmd(),
		NewWatchCmd(),
		NewVersionCmd(),
	)

	return root
}
