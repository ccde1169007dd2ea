// =============================================================================
// Photo Sale Ledger - Pay Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale pay REF --mode MODE [--date DATE] [--desired-deposit DATE] [--actual-deposit DATE]
//
// Recording the same payment twice is not an error: the second call reports
// that the payment was already applied and writes nothing.
//
// =============================================================================

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

var (
	payMode           string
	payDate           string
	payDesiredDeposit string
	payActualDeposit  string
)

var payCmd = &cobra.Command{
	Use:   "pay REF",
	Short: "Record the payment of a validated order",
	Long: `Record the payment of a validated order. The order moves to "paid" and is
appended to the settlement and preparation side-ledgers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := payDate
		if date == "" {
			date = time.Now().Format(record.DateLayout)
		}
		result := current.service().RecordPayment(ledger.PaymentRequest{
			Reference:          args[0],
			Mode:               payMode,
			Date:               date,
			DesiredDepositDate: payDesiredDeposit,
			ActualDepositDate:  payActualDeposit,
		})
		return printResult(cmd, result)
	},
}

func init() {
	payCmd.Flags().StringVar(&payMode, "mode", "", "Payment mode (e.g. Especes, Cheque)")
	payCmd.Flags().StringVar(&payDate, "date", "", "Payment date (default today)")
	payCmd.Flags().StringVar(&payDesiredDeposit, "desired-deposit", "", "Desired cheque deposit date")
	payCmd.Flags().StringVar(&payActualDeposit, "actual-deposit", "", "Actual deposit date")
	payCmd.MarkFlagRequired("mode")

	rootCmd.AddCommand(payCmd)
}
