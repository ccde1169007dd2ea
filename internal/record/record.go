// =============================================================================
// Photo Sale Ledger - Order Record Model
// =============================================================================
//
// This package gives names to the positional columns of the order ledger
// (commandes.csv). One row is one line item; every order-level field
// (customer, dates, status) is repeated on each row of the same reference.
//
// CANONICAL COLUMN MAPPING (0-based):
//   | #  | Field                 | Header                       |
//   |----|-----------------------|------------------------------|
//   | 0  | reference             | REF                          |
//   | 1  | lastname              | Nom                          |
//   | 2  | firstname             | Prenom                       |
//   | 3  | email                 | Email                        |
//   | 4  | phone                 | Telephone                    |
//   | 5  | created_at            | Date commande                |
//   | 6  | activity_key          | Dossier                      |
//   | 7  | photo_name            | N de la photo                |
//   | 8  | quantity              | Quantite                     |
//   | 9  | line_amount           | Montant Total                |
//   | 10 | payment_mode          | Mode de paiement             |
//   | 11 | desired_deposit_date  | Date encaissement souhaitee  |
//   | 12 | actual_deposit_date   | Date encaissement            |
//   | 13 | deposit_date          | Date depot                   |
//   | 14 | retrieval_date        | Date de recuperation         |
//   | 15 | command_status        | Statut commande              |
//   | 16 | exported              | Exported                     |
//
// deposit_date carries the payment date recorded at VALIDATED -> PAID.
// line_amount is always the per-line subtotal (quantity x unit price).
//
// =============================================================================

package record

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// FIELDS
// =============================================================================

// Field is the name of a ledger column.
type Field string

const (
	FieldReference          Field = "reference"
	FieldLastname           Field = "lastname"
	FieldFirstname          Field = "firstname"
	FieldEmail              Field = "email"
	FieldPhone              Field = "phone"
	FieldCreatedAt          Field = "created_at"
	FieldActivityKey        Field = "activity_key"
	FieldPhotoName          Field = "photo_name"
	FieldQuantity           Field = "quantity"
	FieldLineAmount         Field = "line_amount"
	FieldPaymentMode        Field = "payment_mode"
	FieldDesiredDepositDate Field = "desired_deposit_date"
	FieldActualDepositDate  Field = "actual_deposit_date"
	FieldDepositDate        Field = "deposit_date"
	FieldRetrievalDate      Field = "retrieval_date"
	FieldCommandStatus      Field = "command_status"
	FieldExported           Field = "exported"
)

// Columns lists the fields in file order.
var Columns = []Field{
	FieldReference,
	FieldLastname,
	FieldFirstname,
	FieldEmail,
	FieldPhone,
	FieldCreatedAt,
	FieldActivityKey,
	FieldPhotoName,
	FieldQuantity,
	FieldLineAmount,
	FieldPaymentMode,
	FieldDesiredDepositDate,
	FieldActualDepositDate,
	FieldDepositDate,
	FieldRetrievalDate,
	FieldCommandStatus,
	FieldExported,
}

// ColumnCount is the number of columns of a ledger row.
var ColumnCount = len(Columns)

// Header is the header row of commandes.csv.
var Header = []string{
	"REF",
	"Nom",
	"Prenom",
	"Email",
	"Telephone",
	"Date commande",
	"Dossier",
	"N de la photo",
	"Quantite",
	"Montant Total",
	"Mode de paiement",
	"Date encaissement souhaitee",
	"Date encaissement",
	"Date depot",
	"Date de recuperation",
	"Statut commande",
	"Exported",
}

// fieldIndex maps each field to its column position.
var fieldIndex = func() map[Field]int {
	index := make(map[Field]int, len(Columns))
	for i, field := range Columns {
		index[field] = i
	}
	return index
}()

// Index returns the column position of a field.
func Index(field Field) (int, bool) {
	i, ok := fieldIndex[field]
	return i, ok
}

// OrderLevelFields are the fields that must be identical on every row of the
// same reference.
var OrderLevelFields = []Field{
	FieldLastname,
	FieldFirstname,
	FieldEmail,
	FieldPhone,
	FieldCreatedAt,
	FieldPaymentMode,
	FieldDesiredDepositDate,
	FieldActualDepositDate,
	FieldDepositDate,
	FieldRetrievalDate,
	FieldCommandStatus,
	FieldExported,
}

// =============================================================================
// STATUS ENUMERATIONS
// =============================================================================

// Status is the value of the command_status column.
type Status string

const (
	StatusValidated Status = "validated"
	StatusPaid      Status = "paid"
	StatusRetrieved Status = "retrieved"
)

// rank orders the statuses along the lifecycle. Unknown values rank lowest.
func (s Status) rank() int {
	switch s {
	case StatusValidated:
		return 1
	case StatusPaid:
		return 2
	case StatusRetrieved:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.rank() > 0
}

// Before reports whether s comes strictly earlier in the lifecycle than other.
func (s Status) Before(other Status) bool {
	return s.rank() < other.rank()
}

// IsPaid reports whether the order has reached PAID or later.
func (s Status) IsPaid() bool {
	return s.rank() >= StatusPaid.rank()
}

// ParseStatus normalizes a stored status value.
func ParseStatus(value string) Status {
	return Status(strings.ToLower(strings.TrimSpace(value)))
}

// ExportedMarker is the value of the exported column once the order has
// been propagated to the side-ledgers.
const ExportedMarker = "exported"

// =============================================================================
// ROW
// =============================================================================

// Row is one line of commandes.csv.
type Row []string

// NewRow returns an empty row with the canonical column count.
func NewRow() Row {
	return make(Row, ColumnCount)
}

// FromStrings pads a decoded row to the canonical column count.
func FromStrings(values []string) Row {
	if len(values) >= ColumnCount {
		return Row(values)
	}
	row := NewRow()
	copy(row, values)
	return row
}

// Get returns the value of a field, or "" if the row is too short.
func (r Row) Get(field Field) string {
	i, ok := fieldIndex[field]
	if !ok || i >= len(r) {
		return ""
	}
	return r[i]
}

// Set assigns a field value. The row must have the canonical column count.
func (r Row) Set(field Field, value string) {
	if i, ok := fieldIndex[field]; ok && i < len(r) {
		r[i] = value
	}
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	return append(Row(nil), r...)
}

// Reference returns column 0.
func (r Row) Reference() string {
	return r.Get(FieldReference)
}

// Status returns the parsed command_status.
func (r Row) Status() Status {
	return ParseStatus(r.Get(FieldCommandStatus))
}

// Exported reports whether the exported marker is set.
func (r Row) Exported() bool {
	return strings.TrimSpace(r.Get(FieldExported)) == ExportedMarker
}

// Quantity parses the quantity column. Non-numeric values count as 0.
func (r Row) Quantity() int {
	quantity, err := strconv.Atoi(strings.TrimSpace(r.Get(FieldQuantity)))
	if err != nil || quantity < 0 {
		return 0
	}
	return quantity
}

// =============================================================================
// FIELD UPDATES
// =============================================================================

// FieldUpdates is a set of named column assignments.
type FieldUpdates map[Field]string

// Validate checks that every field name is known.
func (u FieldUpdates) Validate() error {
	for field := range u {
		if _, ok := fieldIndex[field]; !ok {
			return fmt.Errorf("unknown ledger field %q", field)
		}
	}
	return nil
}

// Apply assigns every update to the row.
func (u FieldUpdates) Apply(row Row) {
	for field, value := range u {
		row.Set(field, value)
	}
}
