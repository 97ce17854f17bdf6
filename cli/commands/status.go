package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/cli/internal/ui"
	"github.com/driftlock/driftlock/migrate/catalog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Long:  `List every applied ledger entry and every pending script. Never mutates.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if err := engine.Ledger.EnsureSchema(ctx); err != nil {
		return err
	}

	applied, err := engine.Ledger.ListApplied(ctx)
	if err != nil {
		return err
	}
	descriptors, err := engine.Catalog.ListAll()
	if err != nil {
		return err
	}

	appliedVersions := make(map[int64]bool, len(applied))
	for _, entry := range applied {
		appliedVersions[entry.Version] = true
	}
	var pending []catalog.Descriptor
	for _, d := range descriptors {
		if !appliedVersions[d.Version] {
			pending = append(pending, d)
		}
	}

	if len(applied) > 0 {
		rows := make([][]string, len(applied))
		for i, entry := range applied {
			rows[i] = []string{
				fmt.Sprintf("%d", entry.Version),
				entry.Name,
				entry.AppliedAt.Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%dms", entry.ExecutionTimeMs),
			}
		}
		ui.PrintTable([]string{"VERSION", "NAME", "APPLIED AT", "TOOK"}, rows)
		fmt.Println()
	}

	if len(pending) > 0 {
		ui.PrintInfo("pending:")
		items := make([]string, len(pending))
		for i, d := range pending {
			items[i] = fmt.Sprintf("%d_%s", d.Version, d.Name)
		}
		ui.PrintList(color.New(color.FgYellow), items)
		fmt.Println()
	}

	for _, gap := range versionGaps(descriptors) {
		ui.PrintWarning("version gap: %d is followed by %d", gap[0], gap[1])
	}

	ui.PrintInfo("%d applied, %d pending", len(applied), len(pending))
	return nil
}

// versionGaps reports non-consecutive neighbors in the catalog. Gaps are
// tolerated by the parser but usually mean a misnumbered script.
func versionGaps(descriptors []catalog.Descriptor) [][2]int64 {
	var gaps [][2]int64
	for i := 1; i < len(descriptors); i++ {
		prev, next := descriptors[i-1].Version, descriptors[i].Version
		if next != prev+1 {
			gaps = append(gaps, [2]int64{prev, next})
		}
	}
	return gaps
}
