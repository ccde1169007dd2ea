// =============================================================================
// Photo Sale Ledger - Side-Ledger Records
// =============================================================================
//
// Two append-only files are fed when a payment is recorded:
//   - commandes_reglees.csv     : one SettlementRecord per order
//   - commandes_a_preparer.csv  : one PreparationRecord per line item
//
// The preparation file drives the physical photo preparation, the settlement
// file drives the daily cash reconciliation.
//
// =============================================================================

package record

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SETTLEMENT RECORD
// =============================================================================

// SettlementHeader is the header row of commandes_reglees.csv.
var SettlementHeader = []string{
	"Ref",
	"Nom",
	"Prenom",
	"Email",
	"Tel",
	"Nb photos",
	"Nb USB",
	"Montant",
	"Reglement",
	"Date reglement",
	"Date encaissement souhaitee",
	"Date encaissement reelle",
}

// SettlementRecord is one row of the settlement side-ledger.
type SettlementRecord struct {
	Reference          string
	Lastname           string
	Firstname          string
	Email              string
	Phone              string
	Photos             int
	USB                int
	Amount             decimal.Decimal
	PaymentMode        string
	PaymentDate        string
	DesiredDepositDate string
	ActualDepositDate  string
}

// Strings encodes the record in header order.
func (s SettlementRecord) Strings() []string {
	return []string{
		s.Reference,
		s.Lastname,
		s.Firstname,
		s.Email,
		s.Phone,
		strconv.Itoa(s.Photos),
		strconv.Itoa(s.USB),
		FormatAmount(s.Amount),
		s.PaymentMode,
		s.PaymentDate,
		s.DesiredDepositDate,
		s.ActualDepositDate,
	}
}

// ParseSettlement decodes a settlement row. Missing columns read as empty.
func ParseSettlement(values []string) SettlementRecord {
	get := columnGetter(values)
	amount, _ := ParseAmount(get(7))
	return SettlementRecord{
		Reference:          get(0),
		Lastname:           get(1),
		Firstname:          get(2),
		Email:              get(3),
		Phone:              get(4),
		Photos:             atoi(get(5)),
		USB:                atoi(get(6)),
		Amount:             amount,
		PaymentMode:        get(8),
		PaymentDate:        get(9),
		DesiredDepositDate: get(10),
		ActualDepositDate:  get(11),
	}
}

// BuildSettlement derives the settlement record of an order from its rows.
// The rows must already carry the payment fields. Quantities of line items
// whose activity is usbFolder are counted as USB keys, the rest as photos.
func BuildSettlement(rows []Row, usbFolder string) SettlementRecord {
	if len(rows) == 0 {
		return SettlementRecord{Amount: decimal.Zero}
	}

	first := rows[0]
	settlement := SettlementRecord{
		Reference:          first.Reference(),
		Lastname:           first.Get(FieldLastname),
		Firstname:          first.Get(FieldFirstname),
		Email:              first.Get(FieldEmail),
		Phone:              first.Get(FieldPhone),
		Amount:             decimal.Zero,
		PaymentMode:        first.Get(FieldPaymentMode),
		PaymentDate:        first.Get(FieldDepositDate),
		DesiredDepositDate: first.Get(FieldDesiredDepositDate),
		ActualDepositDate:  first.Get(FieldActualDepositDate),
	}

	for _, row := range rows {
		if IsUSBFolder(row.Get(FieldActivityKey), usbFolder) {
			settlement.USB += row.Quantity()
		} else {
			settlement.Photos += row.Quantity()
		}
		settlement.Amount = settlement.Amount.Add(row.LineAmount())
	}

	return settlement
}

// =============================================================================
// PREPARATION RECORD
// =============================================================================

// PreparationHeader is the header row of commandes_a_preparer.csv.
var PreparationHeader = []string{
	"Ref",
	"Nom",
	"Prenom",
	"Email",
	"Tel",
	"Nom du dossier",
	"Nom de la photo",
	"Quantite",
	"Date de preparation",
	"Date de recuperation",
}

// PreparationRecord is one row of the preparation side-ledger.
type PreparationRecord struct {
	Reference     string
	Lastname      string
	Firstname     string
	Email         string
	Phone         string
	Folder        string
	Photo         string
	Quantity      int
	PreparedAt    string
	RetrievalDate string
}

// Strings encodes the record in header order.
func (p PreparationRecord) Strings() []string {
	return []string{
		p.Reference,
		p.Lastname,
		p.Firstname,
		p.Email,
		p.Phone,
		p.Folder,
		p.Photo,
		strconv.Itoa(p.Quantity),
		p.PreparedAt,
		p.RetrievalDate,
	}
}

// ParsePreparation decodes a preparation row. Missing columns read as empty.
func ParsePreparation(values []string) PreparationRecord {
	get := columnGetter(values)
	return PreparationRecord{
		Reference:     get(0),
		Lastname:      get(1),
		Firstname:     get(2),
		Email:         get(3),
		Phone:         get(4),
		Folder:        get(5),
		Photo:         get(6),
		Quantity:      atoi(get(7)),
		PreparedAt:    get(8),
		RetrievalDate: get(9),
	}
}

// BuildPreparations derives one preparation record per line item.
func BuildPreparations(rows []Row, preparedAt string) []PreparationRecord {
	records := make([]PreparationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, PreparationRecord{
			Reference:     row.Reference(),
			Lastname:      row.Get(FieldLastname),
			Firstname:     row.Get(FieldFirstname),
			Email:         row.Get(FieldEmail),
			Phone:         row.Get(FieldPhone),
			Folder:        row.Get(FieldActivityKey),
			Photo:         row.Get(FieldPhotoName),
			Quantity:      row.Quantity(),
			PreparedAt:    preparedAt,
			RetrievalDate: row.Get(FieldRetrievalDate),
		})
	}
	return records
}

// =============================================================================
// HELPERS
// =============================================================================

// IsUSBFolder reports whether an activity key designates the USB product.
// The comparison ignores case and surrounding spaces.
func IsUSBFolder(activity, usbFolder string) bool {
	if usbFolder == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(activity), strings.TrimSpace(usbFolder))
}

func columnGetter(values []string) func(int) string {
	return func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
}

func atoi(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
