// =============================================================================
// Photo Sale Ledger - Repair Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale repair
//
// Rewrites the ledger and side-ledger files that hold no BOM or several.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite ledger files so they start with exactly one BOM",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repairs, err := current.store.RepairBOM()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		repaired := 0
		for _, repair := range repairs {
			if !repair.Repaired {
				continue
			}
			repaired++
			fmt.Fprintf(out, "repaired %s (%d BOM)\n", repair.Path, repair.BOMCount)
		}
		fmt.Fprintf(out, "%d file(s) checked, %d repaired\n", len(repairs), repaired)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
