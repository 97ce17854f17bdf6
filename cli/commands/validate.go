package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check applied migrations against their on-disk scripts",
	Long: `Recompute the checksum of every applied migration's on-disk script and
compare it to the ledger. Reports drifted and missing scripts. Never mutates.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.Validator.Validate(cmd.Context())
	if err != nil {
		return err
	}

	if result.Valid() {
		ui.PrintSuccess("%d ledger entries verified, no drift", result.Checked)
		return nil
	}

	rows := make([][]string, len(result.Violations))
	for i, v := range result.Violations {
		actual := v.Actual
		if v.MissingFile {
			actual = "script file missing"
		}
		rows[i] = []string{
			fmt.Sprintf("%d", v.Version),
			v.Name,
			v.Expected,
			actual,
		}
	}
	ui.PrintTable([]string{"VERSION", "NAME", "LEDGER CHECKSUM", "ON-DISK"}, rows)

	return fmt.Errorf("%d integrity violation(s) found", len(result.Violations))
}
