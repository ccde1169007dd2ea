// =============================================================================
// Photo Sale Ledger - Check Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale check
//
// Read-only: prints BOM count, rows and xxhash checksum of every file.
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the health of the ledger files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := current.store.Check()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tROWS\tBOM\tSIZE\tMODIFIED\tCHECKSUM")
		for _, file := range report.Files {
			if !file.Exists {
				fmt.Fprintf(w, "%s\t-\t-\t-\t-\tmissing\n", file.Path)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
				file.Path, file.Rows, file.BOMCount, file.Size,
				file.ModTime.Format("2006-01-02 15:04:05"), file.Checksum)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(out, "%d order(s) in the active ledger\n", report.Orders)
		for _, ref := range report.DivergentReferences() {
			fmt.Fprintf(out, "divergent order %s: %v\n", ref, report.Divergent[ref])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
