// =============================================================================
// Photo Sale Ledger - Retrieve Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale retrieve REF [--at "YYYY-MM-DD HH:MM:SS"]
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var retrieveAt string

var retrieveCmd = &cobra.Command{
	Use:   "retrieve REF",
	Short: "Record that a paid order was handed over",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now()
		if retrieveAt != "" {
			parsed, err := record.ParseTimestamp(retrieveAt)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
			at = parsed
		}
		return printResult(cmd, current.service().RecordRetrieval(args[0], at))
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveAt, "at", "", "Retrieval time (default now)")
	rootCmd.AddCommand(retrieveCmd)
}
