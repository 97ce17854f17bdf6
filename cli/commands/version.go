package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/update"
	"github.com/driftlock/driftlock/cli/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Detail())
		if versionCheck {
			return update.CheckForUpdates(version.Version)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
	rootCmd.AddCommand(versionCmd)
}
