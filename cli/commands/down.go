package commands

import (
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
)

var downVersion int64

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration, or a specific version",
	Long: `Execute the paired rollback script for the highest applied version (or the
version named by --version) and delete its ledger entry, atomically. A
missing rollback script fails the command before anything runs.`,
	Args: cobra.NoArgs,
	RunE: runDown,
}

func init() {
	downCmd.Flags().Int64Var(&downVersion, "version", 0, "version to roll back (default: highest applied)")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var target *int64
	if cmd.Flags().Changed("version") {
		target = &downVersion
	}

	entry, err := engine.Executor.Rollback(cmd.Context(), target)
	if err != nil {
		return err
	}
	if entry == nil {
		ui.PrintInfo("nothing to roll back")
		return nil
	}

	ui.PrintSuccess("rolled back %d_%s", entry.Version, entry.Name)
	return nil
}
