package commands

import (
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/config"
	"github.com/driftlock/driftlock/cli/internal/ui"
	"github.com/driftlock/driftlock/migrate/catalog"
)

var createName string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Scaffold the next migration and its rollback stub",
	Long: `Write an empty forward script at the next version number, plus a paired
rollback stub under the rollback subdirectory. Needs no database connection.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "migration name (required)")
	_ = createCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat := catalog.New(config.AppFs, cfg.MigrationsDir)
	d, err := cat.Scaffold(createName)
	if err != nil {
		return err
	}

	ui.PrintSuccess("created migration %d_%s", d.Version, d.Name)
	ui.PrintInfo("forward:  %s", d.ScriptPath)
	ui.PrintInfo("rollback: %s", d.RollbackPath)
	return nil
}
