package commands

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back every applied migration, then apply the full catalog",
	Long: `Roll back every applied migration in strict descending version order, one
transaction per entry, then re-apply the whole catalog from scratch. Every
applied migration must have a rollback script.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetForce {
		confirmed := false
		prompt := &survey.Confirm{
			Message: "Roll back every applied migration and rebuild from scratch?",
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			ui.PrintInfo("reset aborted")
			return nil
		}
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.Executor.Reset(cmd.Context())
	if err != nil {
		return err
	}

	ui.PrintSuccess("reset complete: %d migration(s) re-applied", len(report.Applied))
	return nil
}
