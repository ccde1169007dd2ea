// =============================================================================
// Photo Sale Ledger - Reconcile Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale reconcile [--dry-run]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var reconcileDryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Replay missing side-ledger exports of paid orders",
	Long: `Check every paid or retrieved order against the settlement and preparation
side-ledgers. Missing rows are appended and the exported marker is set.
Orders whose rows disagree on customer or payment fields are only reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.store.Reconcile(reconcileDryRun)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REFERENCE\tPROBLEMS\tREPAIRED")
		for _, entry := range report.Entries {
			var problems []string
			if entry.MissingSettlement {
				problems = append(problems, "missing settlement")
			}
			if entry.DuplicateSettlement {
				problems = append(problems, "duplicate settlement")
			}
			if entry.MissingPreparation {
				problems = append(problems, "missing preparation")
			}
			if entry.PreparationMismatch {
				problems = append(problems, "preparation count mismatch")
			}
			if entry.NotExported {
				problems = append(problems, "not exported")
			}
			if len(entry.DivergentFields) > 0 {
				problems = append(problems, fmt.Sprintf("divergent %v", entry.DivergentFields))
			}
			repaired := "no"
			if entry.Repaired {
				repaired = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Reference, strings.Join(problems, ", "), repaired)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		mode := ""
		if report.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(out, "%d order(s) checked, %d with problems, %d file(s) changed%s\n",
			report.OrdersChecked, len(report.Entries), len(report.ChangedFiles), mode)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Report problems without writing")
	rootCmd.AddCommand(reconcileCmd)
}
