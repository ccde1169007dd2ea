// =============================================================================
// Photo Sale Ledger - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale export [--kind KIND]... [--day YYYY-MM-DD] [--prune-days N]
//
// REPORT KINDS:
//   printer_summary      unique-photo quantities to print
//   picking_by_activity  checklists grouped by activity
//   picking_by_photo     checklists grouped by photo
//   picking_by_order     checklists grouped by order
//   distribution_list    paid orders waiting to be handed over
//   daily_settlement     settlements of one payment day (CSV + XLSX)
//   supplier_split       line items per supplier (CSV + XLSX)
//
// Every run writes into its own output_dir/YYYYMMDD_HHMMSS directory and
// never modifies the ledger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/export"
	"github.com/ginjaninja78/photo-sale-ledger/pkg/utils"
)

var (
	exportKinds     []string
	exportDay       string
	exportPruneDays int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the preparation and settlement reports",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportKinds, "kind", nil,
		"Report kind (repeatable, default all): "+strings.Join(export.AllKinds, ", "))
	exportCmd.Flags().StringVar(&exportDay, "day", "", "Payment day of the daily settlement (default today)")
	exportCmd.Flags().IntVar(&exportPruneDays, "prune-days", 0, "Remove report runs older than N days (0 keeps everything)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := current.cfg
	files := utils.NewFileManager(cfg.OutputDir, cfg.ReportNameFormat)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	exporter := export.NewExporter(current.store, export.Config{
		Files:     files,
		Prices:    current.prices,
		USBFolder: cfg.USBFolder,
		Logger:    current.logger,
	})

	summary, err := exporter.Run(export.Request{Kinds: exportKinds, Day: exportDay})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Export %s: %d paid order(s), %d report(s)\n", summary.RunID, summary.Orders, len(summary.Reports))
	for _, report := range summary.Reports {
		fmt.Fprintf(out, "  %-22s %4d  %s\n", report.Kind, report.Rows, report.Path)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "  FAILED %s\n", failure)
	}

	if exportPruneDays > 0 {
		removed, err := utils.CleanOldRuns(cfg.OutputDir, time.Duration(exportPruneDays)*24*time.Hour, time.Now())
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			fmt.Fprintf(out, "Removed %d old run(s): %s\n", len(removed), strings.Join(removed, ", "))
		}
	}
	return nil
}
