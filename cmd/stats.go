// =============================================================================
// Photo Sale Ledger - Stats Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale stats [--filter all|unpaid|validated|paid|to_retrieve] [--json]
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/orderslist"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the orders of the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orders, err := loadOrders()
		if err != nil {
			return err
		}
		stats := orderslist.CalculateStats(orders, time.Now())
		if listJSON {
			return printJSON(cmd, stats)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Orders:          %d\n", stats.Count)
		fmt.Fprintf(out, "Photos:          %d\n", stats.TotalPhotos)
		fmt.Fprintf(out, "Amount:          %s EUR\n", record.FormatAmount(stats.TotalAmount))
		fmt.Fprintf(out, "Paid today:      %d\n", stats.PaidToday)
		fmt.Fprintf(out, "Retrieved today: %d\n", stats.RetrievedToday)
		return nil
	},
}

func init() {
	addFilterFlags(statsCmd)
	rootCmd.AddCommand(statsCmd)
}
