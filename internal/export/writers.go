package export

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

const rule = "================================================================================\n"

// clean sanitizes a value for any report.
func clean(value string) string {
	return csvcodec.SanitizeValue(value)
}

// =============================================================================
// TEXT REPORTS
// =============================================================================

// textReport writes a fixed-width report with a title block.
func textReport(path, title string, generated time.Time, body func(w *bufio.Writer)) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", title, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "%s\nGenerated: %s\n%s\n", title, generated.Format(record.DateTimeLayout), rule)
	body(writer)
	writer.WriteString(rule)

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", title, err)
	}
	return file.Sync()
}

// WritePrinterSummary writes the print quantities per photo.
func WritePrinterSummary(path string, lines []PrintLine, generated time.Time) error {
	return textReport(path, "Printer Summary", generated, func(w *bufio.Writer) {
		fmt.Fprintf(w, "%-24s %-36s %8s\n", "Activity", "Photo", "Quantity")
		total := 0
		for _, line := range lines {
			fmt.Fprintf(w, "%-24s %-36s %8d\n", clean(line.Activity), clean(line.Photo), line.Quantity)
			total += line.Quantity
		}
		fmt.Fprintf(w, "\n%-61s %8d\n", "Total prints", total)
	})
}

// WritePickingList writes a sectioned checklist.
func WritePickingList(path, title string, groups []PickGroup, generated time.Time) error {
	return textReport(path, title, generated, func(w *bufio.Writer) {
		for _, group := range groups {
			fmt.Fprintf(w, "%s (%d)\n", clean(group.Title), group.Total)
			w.WriteString(strings.Repeat("-", 80) + "\n")
			for _, entry := range group.Entries {
				fmt.Fprintf(w, "  [ ] %-18s %-24s %-24s x%d\n",
					clean(entry.Reference), clean(entry.Customer), clean(entry.Photo), entry.Quantity)
			}
			w.WriteString("\n")
		}
	})
}

// WriteDistributionList writes one checkbox per order to hand over.
func WriteDistributionList(path string, entries []DistributionEntry, generated time.Time) error {
	return textReport(path, "Distribution List", generated, func(w *bufio.Writer) {
		fmt.Fprintf(w, "    %-18s %-28s %-14s %6s %4s %10s\n", "Ref", "Customer", "Phone", "Photos", "USB", "Amount")
		for _, entry := range entries {
			fmt.Fprintf(w, "[ ] %-18s %-28s %-14s %6d %4d %10s\n",
				clean(entry.Reference), clean(entry.Customer), clean(entry.Phone),
				entry.Photos, entry.USB, record.FormatAmount(entry.Amount))
		}
		fmt.Fprintf(w, "\n%d order(s) to hand over\n", len(entries))
	})
}

// =============================================================================
// TABULAR REPORTS
// =============================================================================

// settlementTable returns the header and rows of a daily settlement.
func settlementTable(settlements []record.SettlementRecord) [][]string {
	table := make([][]string, 0, len(settlements)+1)
	table = append(table, record.SettlementHeader)
	for _, settlement := range settlements {
		table = append(table, settlement.Strings())
	}
	return table
}

// supplierHeader is the header of supplier order files.
var supplierHeader = []string{"Ref", "Client", "Dossier", "Photo", "Quantite"}

func supplierTable(lines []SupplierLine) [][]string {
	table := make([][]string, 0, len(lines)+1)
	table = append(table, supplierHeader)
	for _, line := range lines {
		table = append(table, []string{
			line.Reference,
			line.Customer,
			line.Activity,
			line.Photo,
			strconv.Itoa(line.Quantity),
		})
	}
	return table
}

// WriteCSV writes a BOM-prefixed, sanitized CSV report.
func WriteCSV(path string, table [][]string) error {
	if err := csvcodec.WriteFile(path, table); err != nil {
		return fmt.Errorf("failed to write csv report: %w", err)
	}
	return nil
}

// Sheet is one worksheet of an XLSX report.
type Sheet struct {
	Name  string
	Table [][]string
}

// WriteXLSX writes sheets into a new workbook. Every cell is sanitized and
// stored as text.
func WriteXLSX(path string, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}

		for r, row := range sheet.Table {
			values := make([]interface{}, len(row))
			for c, value := range row {
				values[c] = clean(value)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save xlsx report: %w", err)
	}
	return nil
}
