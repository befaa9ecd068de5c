package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs-go/internal/indexer"
	"github.com/askdocs/askdocs-go/internal/logging"
)

// watchDebounce is how long to wait after the last filesystem event before
// triggering a reload, so editors that write in bursts cause one run.
const watchDebounce = 2 * time.Second

// NewWatchCmd constructs the `askdocs watch` command, which keeps the index
// in sync with the docs directory until interrupted.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the docs directory and reload on changes",
		Long: `Run an initial reload, then watch the docs directory for file changes and
reload automatically. Changes are debounced so bulk copies trigger a single
run. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			comps, err := openComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer comps.close()

			stats, err := comps.orch.Reload(ctx, indexer.Options{})
			if err != nil {
				return fmt.Errorf("watch: initial reload: %w", err)
			}
			printRunStats(cmd, stats)

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(comps.settings.DocsDir); err != nil {
				return fmt.Errorf("watch: %s: %w", comps.settings.DocsDir, err)
			}
			log.Info("watching for changes", slog.String("dir", comps.settings.DocsDir))

			var timer *time.Timer
			pending := make(chan struct{}, 1)

			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(cmd.OutOrStdout(), "stopped")
					return nil

				case event, open := <-watcher.Events:
					if !open {
						return nil
					}
					if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
						continue
					}
					log.Debug("filesystem event", slog.String("file", event.Name), slog.String("op", event.Op.String()))
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(watchDebounce, func() {
						select {
						case pending <- struct{}{}:
						default:
						}
					})

				case err, open := <-watcher.Errors:
					if !open {
						return nil
					}
					log.Error("watcher error", slog.String("error", err.Error()))

				case <-pending:
					stats, err := comps.orch.Reload(ctx, indexer.Options{})
					if err != nil {
						log.Error("reload failed", slog.String("error", err.Error()))
						continue
					}
					printRunStats(cmd, stats)
				}
			}
		},
	}
}
