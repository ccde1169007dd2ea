// =============================================================================
// Photo Sale Ledger - Order Aggregate
// =============================================================================
//
// The ledger stores one row per line item and repeats the customer and the
// order dates on every row. The Order aggregate rebuilds the normalized view
// right after loading:
//
//   Order
//   ├── Customer (lastname, firstname, email, phone)
//   ├── Status, payment and retrieval dates
//   └── Items[]  (activity, photo, quantity, subtotal)
//
// Totals are always recomputed from the items. Mutations are delegated to the
// ledger Repository, then the aggregate reloads itself.
//
// =============================================================================

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// Customer is the contact of an order.
type Customer struct {
	Lastname  string `json:"lastname"`
	Firstname string `json:"firstname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName returns "Firstname Lastname".
func (c Customer) FullName() string {
	switch {
	case c.Firstname == "":
		return c.Lastname
	case c.Lastname == "":
		return c.Firstname
	}
	return c.Firstname + " " + c.Lastname
}

// Item is one line item.
type Item struct {
	Activity string          `json:"activity"`
	Photo    string          `json:"photo"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Data is the normalized view of an order.
type Data struct {
	Reference          string          `json:"reference"`
	Customer           Customer        `json:"customer"`
	CreatedAt          string          `json:"created_at"`
	Items              []Item          `json:"items"`
	TotalPhotos        int             `json:"total_photos"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Status             record.Status   `json:"status"`
	PaymentMode        string          `json:"payment_mode,omitempty"`
	PaymentDate        string          `json:"payment_date,omitempty"`
	DesiredDepositDate string          `json:"desired_deposit_date,omitempty"`
	ActualDepositDate  string          `json:"actual_deposit_date,omitempty"`
	RetrievalDate      string          `json:"retrieval_date,omitempty"`
	Exported           bool            `json:"exported"`
}

// Order is an aggregate over the ledger rows of one reference.
type Order struct {
	repo      ledger.Repository
	reference string
	rows      []record.Row
}

// Load reads every row of ref from the repository.
func Load(repo ledger.Repository, ref string) (*Order, error) {
	o := &Order{repo: repo, reference: ref}
	if err := o.reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// FromRows builds an aggregate over rows already read. The rows must share
// the same reference.
func FromRows(repo ledger.Repository, rows []record.Row) *Order {
	o := &Order{repo: repo, rows: rows}
	if len(rows) > 0 {
		o.reference = rows[0].Reference()
	}
	return o
}

func (o *Order) reload() error {
	rows, err := o.repo.FindRowsByReference(o.reference)
	if err != nil {
		return err
	}
	o.rows = rows
	return nil
}

// Reference returns the order reference.
func (o *Order) Reference() string {
	return o.reference
}

// Rows returns the underlying ledger rows.
func (o *Order) Rows() []record.Row {
	return o.rows
}

// Status returns the shared command_status of the order.
func (o *Order) Status() record.Status {
	if len(o.rows) == 0 {
		return ""
	}
	return o.rows[0].Status()
}

// GetData assembles the normalized view of the order.
func (o *Order) GetData() Data {
	data := Data{Reference: o.reference, TotalPrice: decimal.Zero}
	if len(o.rows) == 0 {
		return data
	}

	first := o.rows[0]
	data.Customer = customerOf(first)
	data.CreatedAt = first.Get(record.FieldCreatedAt)
	data.Status = first.Status()
	data.PaymentMode = first.Get(record.FieldPaymentMode)
	data.PaymentDate = first.Get(record.FieldDepositDate)
	data.DesiredDepositDate = first.Get(record.FieldDesiredDepositDate)
	data.ActualDepositDate = first.Get(record.FieldActualDepositDate)
	data.RetrievalDate = first.Get(record.FieldRetrievalDate)
	data.Exported = first.Exported()

	data.Items = make([]Item, 0, len(o.rows))
	for _, row := range o.rows {
		data.Items = append(data.Items, Item{
			Activity: row.Get(record.FieldActivityKey),
			Photo:    row.Get(record.FieldPhotoName),
			Quantity: row.Quantity(),
			Subtotal: row.LineAmount(),
		})
	}
	data.TotalPhotos, data.TotalPrice = record.Totals(o.rows)

	return data
}

func customerOf(row record.Row) Customer {
	return Customer{
		Lastname:  row.Get(record.FieldLastname),
		Firstname: row.Get(record.FieldFirstname),
		Email:     row.Get(record.FieldEmail),
		Phone:     row.Get(record.FieldPhone),
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// UpdatePaymentStatus records the payment of the order (VALIDATED -> PAID).
func (o *Order) UpdatePaymentStatus(mode, date, desiredDeposit, actualDeposit string) ledger.Result {
	result := o.repo.RecordPayment(ledger.PaymentRequest{
		Reference:          o.reference,
		Mode:               mode,
		Date:               date,
		DesiredDepositDate: desiredDeposit,
		ActualDepositDate:  actualDeposit,
	})
	return o.afterMutation(result)
}

// MarkAsExported sets the exported marker of the order.
func (o *Order) MarkAsExported() ledger.Result {
	return o.afterMutation(o.repo.MarkAsExported(o.reference))
}

// UpdateRetrievalStatus marks the order as handed to the customer.
func (o *Order) UpdateRetrievalStatus(at time.Time) ledger.Result {
	return o.afterMutation(o.repo.UpdateRetrievalStatus(o.reference, at))
}

// afterMutation reloads the rows of a successful mutation.
func (o *Order) afterMutation(result ledger.Result) ledger.Result {
	if result.Success {
		if err := o.reload(); err != nil {
			result.Message += " (reload failed: " + err.Error() + ")"
		}
	}
	return result
}
