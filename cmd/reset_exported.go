// =============================================================================
// Photo Sale Ledger - Reset Exported Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale reset-exported [REF]
//
// Without REF every row of the ledger is reset. command_status is kept.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"
)

var resetExportedCmd = &cobra.Command{
	Use:   "reset-exported [REF]",
	Short: "Clear the exported marker of one order, or of every order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		return printResult(cmd, current.store.ResetExported(ref))
	},
}

func init() {
	rootCmd.AddCommand(resetExportedCmd)
}
