// =============================================================================
// Photo Sale Ledger - Maintenance Operations
// =============================================================================
//
// Operations that keep the files healthy between sales days:
//   - ArchiveOldOrders : relocate orders older than a cutoff to the archive
//   - RepairBOM        : rewrite every managed file with exactly one BOM
//   - Reconcile        : replay side-ledger exports for paid orders
//   - Check            : read-only health report with per-file checksums
//
// =============================================================================

package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/metrics"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveResult reports what ArchiveOldOrders moved.
type ArchiveResult struct {
	Result

	// ArchivedCount is the number of orders moved.
	ArchivedCount int

	// ArchivedRows is the number of line-item rows moved.
	ArchivedRows int

	// Skipped lists references kept active because their creation date
	// could not be parsed.
	Skipped []string
}

// ArchiveOldOrders moves every order created more than cutoffDays ago from
// the active ledger to the archive file.
//
// WRITE ORDER:
//   1. The archive file is rewritten with its previous rows plus the moved ones
//   2. The active ledger is rewritten with the remaining rows
//   If step 1 fails nothing changed. If step 2 fails the archive is restored
//   to its previous content, so the active ledger stays the recovery anchor.
func (s *Store) ArchiveOldOrders(cutoffDays int) ArchiveResult {
	var result ArchiveResult
	if cutoffDays < 0 {
		result.Result = failed("", fmt.Errorf("%w: cutoff days must not be negative", ErrValidation))
		return result
	}

	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}

		cutoff := s.now().AddDate(0, 0, -cutoffDays)
		order, groups := record.GroupByReference(rows)

		old := make(map[string]bool)
		for _, ref := range order {
			created, err := record.ParseTimestamp(groups[ref][0].Get(record.FieldCreatedAt))
			if err != nil {
				result.Skipped = append(result.Skipped, ref)
				continue
			}
			if created.Before(cutoff) {
				old[ref] = true
			}
		}

		var keep, move []record.Row
		for _, row := range rows {
			if old[row.Reference()] {
				move = append(move, row)
			} else {
				keep = append(keep, row)
			}
		}

		if len(move) == 0 {
			result.Result = succeeded("", 0, "no order older than %d day(s)", cutoffDays)
			return nil
		}

		previous, existed, err := readRaw(s.paths.Archive)
		if err != nil {
			return ioError("read archive", err)
		}
		archived, err := s.readTable(s.paths.Archive, record.ColumnCount, record.Header[0])
		if err != nil {
			return err
		}
		archiveRows := make([]record.Row, 0, len(archived)+len(move))
		for _, values := range archived {
			archiveRows = append(archiveRows, record.FromStrings(values))
		}
		archiveRows = append(archiveRows, move...)

		if err := writeRows(s.paths.Archive, record.Header, archiveRows); err != nil {
			return err
		}
		if err := s.writeLedger(keep); err != nil {
			if rerr := restoreRaw(s.paths.Archive, previous, existed); rerr != nil {
				s.logger.Error("failed to restore archive after ledger write failure", "error", rerr)
			}
			return err
		}

		result.ArchivedCount = len(old)
		result.ArchivedRows = len(move)
		result.Result = succeeded("", len(move), "archived %d order(s), %d row(s)", len(old), len(move))
		return nil
	})
	if err != nil {
		result.Result = failed("", err)
	}

	metrics.ObserveOperation("archive", result.Success)
	s.logResult("archive", result.Result)
	return result
}

// =============================================================================
// BOM REPAIR
// =============================================================================

// FileRepair reports the BOM state of one file before repair.
type FileRepair struct {
	Path     string
	BOMCount int
	Repaired bool
}

// RepairBOM rewrites every managed file that does not start with exactly one
// BOM. Missing files are skipped.
func (s *Store) RepairBOM() ([]FileRepair, error) {
	var repairs []FileRepair
	err := s.withLock(func() error {
		for _, path := range s.allPaths() {
			data, exists, err := readRaw(path)
			if err != nil {
				return ioError("read "+filepath.Base(path), err)
			}
			if !exists {
				continue
			}

			repair := FileRepair{Path: path, BOMCount: csvcodec.CountBOM(data)}
			if repair.BOMCount != 1 || !hasBOMPrefix(data) {
				if err := csvcodec.WriteRaw(path, csvcodec.RepairBOM(data)); err != nil {
					return ioError("repair "+filepath.Base(path), err)
				}
				repair.Repaired = true
				s.logger.Warn("repaired BOM", "file", filepath.Base(path), "bom_count", repair.BOMCount)
			}
			repairs = append(repairs, repair)
		}
		return nil
	})
	metrics.ObserveOperation("repair_bom", err == nil)
	return repairs, err
}

func hasBOMPrefix(data []byte) bool {
	return len(data) >= len(csvcodec.BOM) && string(data[:len(csvcodec.BOM)]) == csvcodec.BOM
}

// allPaths lists the managed files.
func (s *Store) allPaths() []string {
	return []string{s.paths.Ledger, s.paths.Settlement, s.paths.Preparation, s.paths.Archive}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileEntry describes one paid order whose exports were incomplete, or
// whose rows diverge on order-level fields.
type ReconcileEntry struct {
	Reference           string
	MissingSettlement   bool
	DuplicateSettlement bool
	MissingPreparation  bool
	PreparationMismatch bool
	NotExported         bool
	DivergentFields     []record.Field
	Repaired            bool
}

// ReconcileReport summarizes a reconciliation pass.
type ReconcileReport struct {
	OrdersChecked int
	Entries       []ReconcileEntry
	ChangedFiles  []string
	DryRun        bool
}

// Reconcile aligns PAID and RETRIEVED orders with their side-ledger exports.
// For each such order it appends a missing settlement row, appends missing
// preparation rows (only when the reference has none) and sets the exported
// marker. Divergent order-level fields are reported, never rewritten.
// With dryRun nothing is written.
func (s *Store) Reconcile(dryRun bool) (ReconcileReport, error) {
	report := ReconcileReport{DryRun: dryRun}

	err := s.withLock(func() error {
		before := s.checksums()

		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		settlements, err := s.readSettlements()
		if err != nil {
			return err
		}
		preparations, err := s.readPreparations()
		if err != nil {
			return err
		}

		order, groups := record.GroupByReference(rows)
		exportRefs := make(map[string]bool)

		for _, ref := range order {
			group := groups[ref]
			entry := ReconcileEntry{Reference: ref, DivergentFields: record.Divergent(group)}

			if group[0].Status().IsPaid() {
				report.OrdersChecked++
				settled := countSettlements(settlements, ref)
				prepared := countPreparations(preparations, ref)
				entry.MissingSettlement = settled == 0
				entry.DuplicateSettlement = settled > 1
				entry.MissingPreparation = prepared == 0
				entry.PreparationMismatch = prepared > 0 && prepared != len(group)
				entry.NotExported = !allExported(group)
			}

			needsExport := entry.MissingSettlement || entry.MissingPreparation || entry.NotExported
			if !needsExport && !entry.DuplicateSettlement && !entry.PreparationMismatch && len(entry.DivergentFields) == 0 {
				continue
			}

			if needsExport && !dryRun {
				if err := s.ensureSideLedgers(ref, group); err != nil {
					return err
				}
				exportRefs[ref] = true
				entry.Repaired = true
			}
			report.Entries = append(report.Entries, entry)
		}

		if len(exportRefs) > 0 {
			for _, row := range rows {
				if exportRefs[row.Reference()] {
					row.Set(record.FieldExported, record.ExportedMarker)
				}
			}
			if err := s.writeLedger(rows); err != nil {
				return err
			}
		}

		after := s.checksums()
		for _, path := range s.allPaths() {
			if before[path] != after[path] {
				report.ChangedFiles = append(report.ChangedFiles, path)
			}
		}
		return nil
	})

	metrics.ObserveOperation("reconcile", err == nil)
	if err == nil {
		s.logger.Info("reconciliation complete",
			"orders_checked", report.OrdersChecked,
			"entries", len(report.Entries),
			"changed_files", len(report.ChangedFiles),
			"dry_run", dryRun)
	}
	return report, err
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// FileStatus describes one managed file.
type FileStatus struct {
	Path     string
	Exists   bool
	Size     int64
	ModTime  time.Time
	BOMCount int
	Rows     int
	Checksum string
}

// CheckReport is the read-only health report of the ledger files.
type CheckReport struct {
	Files     []FileStatus
	Orders    int
	Divergent map[string][]record.Field
}

// Check inspects every managed file without modifying anything.
func (s *Store) Check() (CheckReport, error) {
	report := CheckReport{Divergent: make(map[string][]record.Field)}

	err := s.withLock(func() error {
		for _, path := range s.allPaths() {
			status := FileStatus{Path: path}
			info, err := os.Stat(path)
			if os.IsNotExist(err) {
				report.Files = append(report.Files, status)
				continue
			}
			if err != nil {
				return ioError("stat "+filepath.Base(path), err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return ioError("read "+filepath.Base(path), err)
			}

			status.Exists = true
			status.Size = info.Size()
			status.ModTime = info.ModTime()
			status.BOMCount = csvcodec.CountBOM(data)
			status.Checksum = Checksum(data)
			if rows, err := csvcodec.Decode(csvcodec.RepairBOM(data), 0); err == nil && len(rows) > 0 {
				status.Rows = len(rows) - 1
			}
			report.Files = append(report.Files, status)
		}

		table, err := csvcodec.Decode(s.repairedLedgerBytes(), record.ColumnCount)
		if err != nil {
			return ioError("decode ledger", err)
		}
		rows := make([]record.Row, 0, len(table))
		for _, values := range table {
			if isHeader(values, record.Header[0]) {
				continue
			}
			rows = append(rows, record.FromStrings(values))
		}

		order, groups := record.GroupByReference(rows)
		report.Orders = len(order)
		for _, ref := range order {
			if fields := record.Divergent(groups[ref]); len(fields) > 0 {
				report.Divergent[ref] = fields
			}
		}
		return nil
	})

	return report, err
}

// repairedLedgerBytes returns the ledger content with its BOMs normalized in
// memory. A missing ledger yields a lone BOM.
func (s *Store) repairedLedgerBytes() []byte {
	data, _, _ := readRaw(s.paths.Ledger)
	return csvcodec.RepairBOM(data)
}

// DivergentReferences returns the references of a CheckReport in sorted
// order.
func (r CheckReport) DivergentReferences() []string {
	refs := make([]string, 0, len(r.Divergent))
	for ref := range r.Divergent {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
