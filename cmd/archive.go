// =============================================================================
// Photo Sale Ledger - Archive Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale archive [--days N]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var archiveDays int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move old orders to the archive file",
	Long: `Move every order created more than N days ago from the active ledger to
the archive file. N defaults to archive_after_days from the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days := current.cfg.ArchiveAfterDays
		if cmd.Flags().Changed("days") {
			days = archiveDays
		}

		result := current.store.ArchiveOldOrders(days)
		if err := printResult(cmd, result.Result); err != nil {
			return err
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Kept (unreadable creation date): %s\n", strings.Join(result.Skipped, ", "))
		}
		return nil
	},
}

func init() {
	archiveCmd.Flags().IntVar(&archiveDays, "days", 0, "Archive orders older than N days (default archive_after_days)")
	rootCmd.AddCommand(archiveCmd)
}
