// =============================================================================
// Photo Sale Ledger - Order Ledger Store
// =============================================================================
//
// The Store is the only component that reads or writes the ledger files:
//   - commandes.csv             : the canonical order ledger (line-item rows)
//   - commandes_reglees.csv     : settlement side-ledger (append-only)
//   - commandes_a_preparer.csv  : preparation side-ledger (append-only)
//   - commandes_archives.csv    : orders relocated out of the active ledger
//
// WRITE DISCIPLINE:
//   Every mutation is read-entire-file -> mutate in memory -> write-entire-file.
//   The whole window runs under an exclusive lock (an in-process mutex plus
//   an flock on "<ledger>.lock"), so two operators recording payments at the
//   same time can no longer revert each other's rewrite. Full rewrites go to a
//   temporary file renamed over the target; a failed write leaves the
//   previous file in place.
//
// =============================================================================

package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/logging"
	"github.com/ginjaninja78/photo-sale-ledger/internal/metrics"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// =============================================================================
// REPOSITORY INTERFACE
// =============================================================================

// Repository is the storage boundary consumed by the order aggregate and the
// query layer. The CSV Store is its only implementation today.
type Repository interface {
	ReadAll() ([]record.Row, error)
	FindRowsByReference(ref string) ([]record.Row, error)
	RewriteWithUpdate(ref string, updates record.FieldUpdates) (int, error)
	AppendRows(rows []record.Row) error
	RemoveByReference(ref string) (int, error)
	ReplaceOrder(ref string, rows []record.Row) (int, error)

	RecordPayment(request PaymentRequest) Result
	MarkAsExported(ref string) Result
	UpdateRetrievalStatus(ref string, at time.Time) Result
	ResetExported(ref string) Result
	ArchiveOldOrders(cutoffDays int) ArchiveResult

	ReadSettlements() ([]record.SettlementRecord, error)
	ReadPreparations() ([]record.PreparationRecord, error)
}

var _ Repository = (*Store)(nil)

// =============================================================================
// STORE
// =============================================================================

// Paths locates the ledger files.
type Paths struct {
	Ledger      string
	Settlement  string
	Preparation string
	Archive     string
}

// DefaultPaths returns the standard file names inside dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		Ledger:      filepath.Join(dataDir, "commandes.csv"),
		Settlement:  filepath.Join(dataDir, "commandes_reglees.csv"),
		Preparation: filepath.Join(dataDir, "commandes_a_preparer.csv"),
		Archive:     filepath.Join(dataDir, "commandes_archives.csv"),
	}
}

// Options tunes the Store.
type Options struct {
	// USBFolder is the activity key counted as "Nb USB" in settlements.
	USBFolder string

	// AutoRepairBOM repairs a file holding several BOMs when it is read,
	// instead of failing with ErrBOMCorruption.
	AutoRepairBOM bool

	// Logger receives one entry per mutation. Nil discards.
	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store is the CSV-backed Repository.
type Store struct {
	paths  Paths
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore creates a Store over the given files.
func NewStore(paths Paths, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		paths:  paths,
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		lock:   flock.New(paths.Ledger + ".lock"),
	}
}

// Paths returns the files managed by the store.
func (s *Store) Paths() Paths {
	return s.paths
}

// withLock runs fn while holding the exclusive ledger lock.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.paths.Ledger), 0755); err != nil {
		return ioError("create data directory", err)
	}
	if err := s.lock.Lock(); err != nil {
		return ioError("lock ledger", err)
	}
	defer s.lock.Unlock()

	return fn()
}

// =============================================================================
// LOW-LEVEL FILE ACCESS (caller holds the lock)
// =============================================================================

// readTable reads a CSV file and returns its data rows without the header.
// A missing file reads as empty. A file with several BOMs is repaired in
// place when AutoRepairBOM is set.
func (s *Store) readTable(path string, columns int, headerFirst string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("read "+filepath.Base(path), err)
	}

	rows, err := csvcodec.Decode(data, columns)
	if errors.Is(err, csvcodec.ErrBOMCorruption) && s.opts.AutoRepairBOM {
		s.logger.Warn("repairing BOM corruption", "file", filepath.Base(path), "bom_count", csvcodec.CountBOM(data))
		repaired := csvcodec.RepairBOM(data)
		if werr := csvcodec.WriteRaw(path, repaired); werr != nil {
			return nil, ioError("repair "+filepath.Base(path), werr)
		}
		rows, err = csvcodec.Decode(repaired, columns)
	}
	if err != nil {
		return nil, ioError("decode "+filepath.Base(path), err)
	}

	if len(rows) > 0 && isHeader(rows[0], headerFirst) {
		rows = rows[1:]
	}
	return rows, nil
}

// isHeader reports whether a decoded row is the header row.
func isHeader(row []string, first string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), first)
}

// readLedger returns every data row of the main ledger.
func (s *Store) readLedger() ([]record.Row, error) {
	table, err := s.readTable(s.paths.Ledger, record.ColumnCount, record.Header[0])
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, len(table))
	for i, values := range table {
		rows[i] = record.FromStrings(values)
	}
	return rows, nil
}

// writeLedger replaces the main ledger with the header and rows.
func (s *Store) writeLedger(rows []record.Row) error {
	return writeRows(s.paths.Ledger, record.Header, rows)
}

// writeTable replaces a managed file with a table. Tests swap it to inject
// write failures.
var writeTable = csvcodec.WriteFile

// writeRows writes a header and ledger rows to path.
func writeRows(path string, header []string, rows []record.Row) error {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, header)
	for _, row := range rows {
		table = append(table, row)
	}
	if err := writeTable(path, table); err != nil {
		return ioError("write "+filepath.Base(path), err)
	}
	return nil
}

// matching returns the rows of rows whose reference is ref.
func matching(rows []record.Row, ref string) []record.Row {
	var found []record.Row
	for _, row := range rows {
		if row.Reference() == ref {
			found = append(found, row)
		}
	}
	return found
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// ReadAll returns every data row of the main ledger in file order.
// It returns ErrEmptyLedger when the ledger holds no data rows.
func (s *Store) ReadAll() ([]record.Row, error) {
	var rows []record.Row
	err := s.withLock(func() error {
		var err error
		rows, err = s.readLedger()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyLedger
	}
	return rows, nil
}

// FindRowsByReference returns every row whose column 0 equals ref, in file
// order.
func (s *Store) FindRowsByReference(ref string) ([]record.Row, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrValidation)
	}

	var found []record.Row
	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		found = matching(rows, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return found, nil
}

// ReadSettlements returns every row of the settlement side-ledger.
func (s *Store) ReadSettlements() ([]record.SettlementRecord, error) {
	var settlements []record.SettlementRecord
	err := s.withLock(func() error {
		var err error
		settlements, err = s.readSettlements()
		return err
	})
	return settlements, err
}

func (s *Store) readSettlements() ([]record.SettlementRecord, error) {
	table, err := s.readTable(s.paths.Settlement, len(record.SettlementHeader), record.SettlementHeader[0])
	if err != nil {
		return nil, err
	}
	settlements := make([]record.SettlementRecord, len(table))
	for i, values := range table {
		settlements[i] = record.ParseSettlement(values)
	}
	return settlements, nil
}

// ReadPreparations returns every row of the preparation side-ledger.
func (s *Store) ReadPreparations() ([]record.PreparationRecord, error) {
	var preparations []record.PreparationRecord
	err := s.withLock(func() error {
		var err error
		preparations, err = s.readPreparations()
		return err
	})
	return preparations, err
}

func (s *Store) readPreparations() ([]record.PreparationRecord, error) {
	table, err := s.readTable(s.paths.Preparation, len(record.PreparationHeader), record.PreparationHeader[0])
	if err != nil {
		return nil, err
	}
	preparations := make([]record.PreparationRecord, len(table))
	for i, values := range table {
		preparations[i] = record.ParsePreparation(values)
	}
	return preparations, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// RewriteWithUpdate applies the named field updates to every row of ref and
// rewrites the whole ledger in one pass.
//
// RETURNS:
//   - The number of rows updated.
//   - ErrValidation for an unknown field, ErrNotFound when no row matches.
func (s *Store) RewriteWithUpdate(ref string, updates record.FieldUpdates) (int, error) {
	if err := updates.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var count int
	err := s.withLock(func() error {
		var err error
		count, err = s.rewriteWithUpdate(ref, updates)
		return err
	})
	metrics.ObserveOperation("rewrite", err == nil)
	return count, err
}

func (s *Store) rewriteWithUpdate(ref string, updates record.FieldUpdates) (int, error) {
	rows, err := s.readLedger()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		if row.Reference() == ref {
			updates.Apply(row)
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	if err := s.writeLedger(rows); err != nil {
		return 0, err
	}
	return count, nil
}

// AppendRows appends rows to the main ledger, writing the header first when
// the file does not exist yet.
func (s *Store) AppendRows(rows []record.Row) error {
	err := s.withLock(func() error {
		return s.appendRows(rows)
	})
	metrics.ObserveOperation("append", err == nil)
	return err
}

func (s *Store) appendRows(rows []record.Row) error {
	if len(rows) == 0 {
		return nil
	}
	table := make([][]string, len(rows))
	for i, row := range rows {
		table[i] = row
	}
	if err := csvcodec.AppendFile(s.paths.Ledger, record.Header, table); err != nil {
		return ioError("append to ledger", err)
	}
	return nil
}

// RemoveByReference drops every row of ref and rewrites the ledger.
// Removing an absent reference is not an error and returns 0.
func (s *Store) RemoveByReference(ref string) (int, error) {
	var removed int
	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		kept, n := without(rows, ref)
		removed = n
		if n == 0 {
			return nil
		}
		return s.writeLedger(kept)
	})
	metrics.ObserveOperation("remove", err == nil)
	return removed, err
}

// ReplaceOrder swaps the rows of a not-yet-paid order for new ones in a
// single rewrite. It is used when a customer resubmits an order, so that the
// old line items are not duplicated.
//
// RETURNS:
//   - The number of rows removed (0 for a new reference).
//   - ErrInvalidTransition if the existing order is already paid.
func (s *Store) ReplaceOrder(ref string, rows []record.Row) (int, error) {
	var removed int
	err := s.withLock(func() error {
		existing, err := s.readLedger()
		if err != nil {
			return err
		}

		for _, row := range matching(existing, ref) {
			if row.Status().IsPaid() {
				return fmt.Errorf("%w: order %s is already %s", ErrInvalidTransition, ref, row.Status())
			}
		}

		kept, n := without(existing, ref)
		removed = n
		if n == 0 {
			return s.appendRows(rows)
		}
		return s.writeLedger(append(kept, rows...))
	})
	metrics.ObserveOperation("replace", err == nil)
	return removed, err
}

// without returns rows minus those of ref, and how many were dropped.
func without(rows []record.Row, ref string) ([]record.Row, int) {
	kept := make([]record.Row, 0, len(rows))
	for _, row := range rows {
		if row.Reference() != ref {
			kept = append(kept, row)
		}
	}
	return kept, len(rows) - len(kept)
}

// =============================================================================
// HELPERS
// =============================================================================

// now returns the store clock.
func (s *Store) now() time.Time {
	return s.opts.Now()
}

// readRaw returns the raw content of a file, nil if it does not exist.
func readRaw(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// restoreRaw puts a file back to a previous state captured by readRaw.
func restoreRaw(path string, data []byte, existed bool) error {
	if !existed {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return csvcodec.WriteRaw(path, bytes.Clone(data))
}
