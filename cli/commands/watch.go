package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
	"github.com/driftlock/driftlock/cli/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the migrations directory and apply new scripts automatically",
	Long: `Development mode: apply pending migrations now, then keep watching the
migrations directory and re-apply whenever a SQL script is added or changed.
Drift and script failures are reported and watching continues.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	// Make sure the directory exists before the watcher attaches to it.
	if _, err := engine.Catalog.ListAll(); err != nil {
		return err
	}

	apply := func() error {
		report, err := engine.Executor.ApplyPending(cmd.Context())
		if report != nil {
			for _, applied := range report.Applied {
				ui.PrintSuccess("applied %d_%s (%dms)", applied.Version, applied.Name, applied.Duration.Milliseconds())
			}
		}
		return err
	}

	watcher, err := watch.New(engine.Catalog.Dir(), apply)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	ui.PrintInfo("watching %s, press Ctrl+C to stop", engine.Catalog.Dir())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ui.PrintInfo("stopping watch")
	return nil
}
