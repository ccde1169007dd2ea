// =============================================================================
// Photo Sale Ledger - Order Lifecycle
// =============================================================================
//
// STATE MACHINE (per order, read from the shared command_status column):
//
//   VALIDATED --RecordPayment--> PAID --UpdateRetrievalStatus--> RETRIEVED
//        \                        |                                 /
//         +-------------------- ArchiveOldOrders ------------------+--> ARCHIVED
//
// The exported marker is orthogonal: it is set on PAID and RETRIEVED rows
// once the order has been propagated to both side-ledgers. ResetExported
// clears that marker only, never the status.
//
// PAYMENT SEQUENCE (VALIDATED -> PAID):
//   1. Append one settlement row, unless the reference already has one
//   2. Append one preparation row per line item, unless any already exist
//   3+4. Rewrite the main ledger with the payment fields, status=paid and
//        the exported marker, in one atomic replace
//   Steps 1-2 must succeed before the main ledger changes, so an order is
//   never PAID without the preparation rows that drive photo printing.
//
// =============================================================================

package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
	"github.com/ginjaninja78/photo-sale-ledger/internal/metrics"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentRequest carries the fields recorded at VALIDATED -> PAID.
type PaymentRequest struct {
	// Reference is the order to mark as paid. Required.
	Reference string

	// Mode is the payment method (e.g. "Espèces", "Chèque"). Required.
	Mode string

	// Date is the payment date, YYYY-MM-DD or YYYY-MM-DD HH:MM:SS. Required.
	Date string

	// DesiredDepositDate is when the customer wants the cheque cashed.
	DesiredDepositDate string

	// ActualDepositDate is when the payment was actually cashed.
	ActualDepositDate string
}

// Validate checks that the required payment fields are present.
func (p PaymentRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Reference) == "" {
		missing = append(missing, "reference")
	}
	if strings.TrimSpace(p.Mode) == "" {
		missing = append(missing, "payment mode")
	}
	if strings.TrimSpace(p.Date) == "" {
		missing = append(missing, "payment date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	for name, value := range map[string]string{
		"payment date":         p.Date,
		"desired deposit date": p.DesiredDepositDate,
		"actual deposit date":  p.ActualDepositDate,
	} {
		if value == "" {
			continue
		}
		if _, err := record.ParseTimestamp(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrValidation, name, err)
		}
	}
	return nil
}

// updates returns the column assignments of a payment.
func (p PaymentRequest) updates() record.FieldUpdates {
	return record.FieldUpdates{
		record.FieldPaymentMode:        strings.TrimSpace(p.Mode),
		record.FieldDepositDate:        strings.TrimSpace(p.Date),
		record.FieldDesiredDepositDate: strings.TrimSpace(p.DesiredDepositDate),
		record.FieldActualDepositDate:  strings.TrimSpace(p.ActualDepositDate),
		record.FieldCommandStatus:      string(record.StatusPaid),
		record.FieldExported:           record.ExportedMarker,
	}
}

// RecordPayment moves an order from VALIDATED to PAID and feeds both
// side-ledgers.
//
// IDEMPOTENCE:
//   Calling it again for an order that is already PAID (or RETRIEVED) and
//   exported returns Success with Reason already_applied and writes nothing.
//   A PAID order missing the exported marker has its side-ledger rows
//   completed and the marker set, without touching the payment fields.
func (s *Store) RecordPayment(request PaymentRequest) Result {
	ref := strings.TrimSpace(request.Reference)
	if err := request.Validate(); err != nil {
		metrics.ObserveOperation("record_payment", false)
		return failed(ref, err)
	}

	var result Result
	err := s.withLock(func() error {
		var err error
		result, err = s.recordPayment(ref, request)
		return err
	})
	if err != nil {
		result = failed(ref, err)
	}

	metrics.ObserveOperation("record_payment", result.Success)
	s.logResult("record_payment", result)
	return result
}

func (s *Store) recordPayment(ref string, request PaymentRequest) (Result, error) {
	rows, err := s.readLedger()
	if err != nil {
		return Result{}, err
	}

	order := matching(rows, ref)
	if len(order) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	status := order[0].Status()
	if status.IsPaid() {
		if allExported(order) {
			return alreadyApplied(ref, "order %s is already %s", ref, status), nil
		}
		if err := s.ensureSideLedgers(ref, order); err != nil {
			return Result{}, err
		}
		count, err := s.setExported(rows, ref, record.ExportedMarker)
		if err != nil {
			return Result{}, err
		}
		return succeeded(ref, count, "order %s export replayed", ref), nil
	}
	if status != record.StatusValidated && status != "" {
		return Result{}, fmt.Errorf("%w: order %s has unknown status %q", ErrInvalidTransition, ref, status)
	}

	updates := request.updates()

	// Side-ledgers are built from the rows as they will look once paid.
	paid := make([]record.Row, len(order))
	for i, row := range order {
		paid[i] = row.Clone()
		updates.Apply(paid[i])
	}
	if err := s.ensureSideLedgers(ref, paid); err != nil {
		return Result{}, err
	}

	for _, row := range order {
		updates.Apply(row)
	}
	if err := s.writeLedger(rows); err != nil {
		return Result{}, err
	}

	return succeeded(ref, len(order), "payment recorded for order %s", ref), nil
}

// ensureSideLedgers appends the settlement and preparation rows of an order
// when they are missing. Existing rows are never duplicated.
func (s *Store) ensureSideLedgers(ref string, order []record.Row) error {
	settlements, err := s.readSettlements()
	if err != nil {
		return err
	}
	if countSettlements(settlements, ref) == 0 {
		settlement := record.BuildSettlement(order, s.opts.USBFolder)
		err := csvcodec.AppendFile(s.paths.Settlement, record.SettlementHeader, [][]string{settlement.Strings()})
		if err != nil {
			return ioError("append settlement row", err)
		}
		metrics.SideLedgerRowsTotal.WithLabelValues("settlement").Inc()
	}

	preparations, err := s.readPreparations()
	if err != nil {
		return err
	}
	existing := countPreparations(preparations, ref)
	switch {
	case existing == 0:
		records := record.BuildPreparations(order, s.now().Format(record.DateTimeLayout))
		table := make([][]string, len(records))
		for i, rec := range records {
			table[i] = rec.Strings()
		}
		if err := csvcodec.AppendFile(s.paths.Preparation, record.PreparationHeader, table); err != nil {
			return ioError("append preparation rows", err)
		}
		metrics.SideLedgerRowsTotal.WithLabelValues("preparation").Add(float64(len(table)))
	case existing != len(order):
		s.logger.Warn("preparation rows do not match line items",
			"reference", ref, "preparation_rows", existing, "line_items", len(order))
	}

	return nil
}

// =============================================================================
// EXPORTED MARKER
// =============================================================================

// MarkAsExported sets the exported marker on every row of a PAID or
// RETRIEVED order.
func (s *Store) MarkAsExported(ref string) Result {
	var result Result
	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		order := matching(rows, ref)
		if len(order) == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		if !order[0].Status().IsPaid() {
			return fmt.Errorf("%w: order %s is not paid", ErrInvalidTransition, ref)
		}
		if allExported(order) {
			result = alreadyApplied(ref, "order %s is already exported", ref)
			return nil
		}
		count, err := s.setExported(rows, ref, record.ExportedMarker)
		if err != nil {
			return err
		}
		result = succeeded(ref, count, "order %s marked as exported", ref)
		return nil
	})
	if err != nil {
		result = failed(ref, err)
	}

	metrics.ObserveOperation("mark_exported", result.Success)
	s.logResult("mark_exported", result)
	return result
}

// ResetExported clears the exported marker of ref, or of every row when ref
// is empty. command_status is left untouched. It exists to replay exports.
func (s *Store) ResetExported(ref string) Result {
	ref = strings.TrimSpace(ref)

	var result Result
	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrEmptyLedger
		}

		count := 0
		for _, row := range rows {
			if (ref == "" || row.Reference() == ref) && row.Exported() {
				row.Set(record.FieldExported, "")
				count++
			}
		}
		if ref != "" && len(matching(rows, ref)) == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		if count == 0 {
			result = alreadyApplied(ref, "no exported rows to reset")
			return nil
		}
		if err := s.writeLedger(rows); err != nil {
			return err
		}
		result = succeeded(ref, count, "exported marker cleared on %d row(s)", count)
		return nil
	})
	if err != nil {
		result = failed(ref, err)
	}

	metrics.ObserveOperation("reset_exported", result.Success)
	s.logResult("reset_exported", result)
	return result
}

// setExported writes value into the exported column of ref and rewrites the
// ledger.
func (s *Store) setExported(rows []record.Row, ref, value string) (int, error) {
	count := 0
	for _, row := range rows {
		if row.Reference() == ref {
			row.Set(record.FieldExported, value)
			count++
		}
	}
	if err := s.writeLedger(rows); err != nil {
		return 0, err
	}
	return count, nil
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// UpdateRetrievalStatus moves a PAID order to RETRIEVED, stamping the
// retrieval date. An order already RETRIEVED is left as is.
func (s *Store) UpdateRetrievalStatus(ref string, at time.Time) Result {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return failed(ref, fmt.Errorf("%w: reference is required", ErrValidation))
	}
	if at.IsZero() {
		at = s.now()
	}

	var result Result
	err := s.withLock(func() error {
		rows, err := s.readLedger()
		if err != nil {
			return err
		}
		order := matching(rows, ref)
		if len(order) == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}

		switch status := order[0].Status(); status {
		case record.StatusRetrieved:
			result = alreadyApplied(ref, "order %s was already retrieved on %s", ref, order[0].Get(record.FieldRetrievalDate))
			return nil
		case record.StatusPaid:
		default:
			return fmt.Errorf("%w: order %s is %s, not paid", ErrInvalidTransition, ref, displayStatus(status))
		}

		updates := record.FieldUpdates{
			record.FieldRetrievalDate: at.Format(record.DateTimeLayout),
			record.FieldCommandStatus: string(record.StatusRetrieved),
			record.FieldExported:      record.ExportedMarker,
		}
		for _, row := range order {
			updates.Apply(row)
		}
		if err := s.writeLedger(rows); err != nil {
			return err
		}
		result = succeeded(ref, len(order), "order %s marked as retrieved", ref)
		return nil
	})
	if err != nil {
		result = failed(ref, err)
	}

	metrics.ObserveOperation("update_retrieval", result.Success)
	s.logResult("update_retrieval", result)
	return result
}

// =============================================================================
// HELPERS
// =============================================================================

func allExported(rows []record.Row) bool {
	for _, row := range rows {
		if !row.Exported() {
			return false
		}
	}
	return true
}

func countSettlements(settlements []record.SettlementRecord, ref string) int {
	n := 0
	for _, settlement := range settlements {
		if settlement.Reference == ref {
			n++
		}
	}
	return n
}

func countPreparations(preparations []record.PreparationRecord, ref string) int {
	n := 0
	for _, preparation := range preparations {
		if preparation.Reference == ref {
			n++
		}
	}
	return n
}

func displayStatus(status record.Status) string {
	if status == "" {
		return "without status"
	}
	return string(status)
}

// logResult writes one log entry for a mutation outcome.
func (s *Store) logResult(operation string, result Result) {
	if result.Success {
		s.logger.Info(result.Message,
			"operation", operation,
			"reference", result.Reference,
			"rows", result.RowsAffected,
			"reason", string(result.Reason))
		return
	}
	s.logger.Error(result.Message,
		"operation", operation,
		"reference", result.Reference,
		"reason", string(result.Reason))
}
