// Package commands implements the driftlock command line interface.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
	"github.com/driftlock/driftlock/internal/debug"
)

var (
	flagDir    string
	flagURL    string
	flagDebug  bool
	flagNoLock bool
)

var rootCmd = &cobra.Command{
	Use:   "driftlock",
	Short: "Checksum-verified SQL schema migrations",
	Long: `driftlock applies ordered, versioned SQL migration scripts to a relational
database, records every applied version in a ledger table inside that same
database, detects when an applied script is edited after the fact, and
reverses changes through paired rollback scripts.

Running driftlock with no subcommand applies all pending migrations.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.Init(flagDebug || os.Getenv("DRIFTLOCK_DEBUG") != "")
	},
	RunE: runUp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", "", `migrations directory (default "migrations")`)
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "database connection string (default $DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoLock, "no-lock", false, "skip the cross-process migration lease")
}

// Execute is the main entry point for the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
