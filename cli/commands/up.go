package commands

import (
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Apply every migration present in the migrations directory but absent from
the ledger, in ascending version order. Each migration and its ledger entry
commit in one transaction; a failure stops the run and leaves earlier
migrations committed.`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	spinner, _ := ui.PrintSpinner("applying pending migrations...")
	report, err := engine.Executor.ApplyPending(cmd.Context())
	if spinner != nil {
		_ = spinner.Stop()
	}
	if report != nil {
		for _, applied := range report.Applied {
			ui.PrintSuccess("applied %d_%s (%dms)", applied.Version, applied.Name, applied.Duration.Milliseconds())
		}
	}
	if err != nil {
		return err
	}

	if report.UpToDate() {
		ui.PrintInfo("database is up to date")
	} else {
		ui.PrintInfo("applied %d migration(s)", len(report.Applied))
	}
	return nil
}
