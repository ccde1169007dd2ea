// =============================================================================
// Photo Sale Ledger - Orders List
// =============================================================================
//
// Read-only query layer over the ledger: each call decodes the ledger once,
// groups rows by reference into Order aggregates (first-seen order) and
// filters them on command_status and retrieval_date.
//
//   | Filter      | Keeps orders whose status is ...               |
//   |-------------|------------------------------------------------|
//   | all         | anything                                       |
//   | unpaid      | not paid (validated or unknown)                |
//   | validated   | validated                                      |
//   | paid        | paid or retrieved                              |
//   | to_retrieve | paid, with an empty retrieval_date             |
//
// =============================================================================

package orderslist

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/order"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// Filter selects orders by lifecycle state.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnpaid     Filter = "unpaid"
	FilterValidated  Filter = "validated"
	FilterPaid       Filter = "paid"
	FilterToRetrieve Filter = "to_retrieve"
)

// Filters lists every accepted filter.
var Filters = []Filter{FilterAll, FilterUnpaid, FilterValidated, FilterPaid, FilterToRetrieve}

// ParseFilter validates a filter name. An empty name means all.
func ParseFilter(value string) (Filter, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == value {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown filter %q", ledger.ErrValidation, value)
}

// Match reports whether an order with the given first row passes the filter.
func (f Filter) Match(first record.Row) bool {
	status := first.Status()
	switch f {
	case FilterAll:
		return true
	case FilterUnpaid:
		return !status.IsPaid()
	case FilterValidated:
		return status == record.StatusValidated
	case FilterPaid:
		return status.IsPaid()
	case FilterToRetrieve:
		return status == record.StatusPaid && strings.TrimSpace(first.Get(record.FieldRetrievalDate)) == ""
	default:
		return false
	}
}

// OrdersList answers queries over the ledger.
type OrdersList struct {
	repo ledger.Repository
}

// New creates an OrdersList over the repository.
func New(repo ledger.Repository) *OrdersList {
	return &OrdersList{repo: repo}
}

// LoadOrdersData returns the orders matching filter, in the order their
// references first appear in the ledger. An empty ledger yields no orders.
func (l *OrdersList) LoadOrdersData(filter Filter) ([]order.Data, error) {
	rows, err := l.repo.ReadAll()
	if errors.Is(err, ledger.ErrEmptyLedger) {
		return []order.Data{}, nil
	}
	if err != nil {
		return nil, err
	}

	refs, groups := record.GroupByReference(rows)
	orders := make([]order.Data, 0, len(refs))
	for _, ref := range refs {
		group := groups[ref]
		if !filter.Match(group[0]) {
			continue
		}
		orders = append(orders, order.FromRows(l.repo, group).GetData())
	}
	return orders, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats summarizes a list of orders.
type Stats struct {
	Count          int             `json:"count"`
	TotalPhotos    int             `json:"total_photos"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidToday      int             `json:"paid_today"`
	RetrievedToday int             `json:"retrieved_today"`
}

// CalculateStats aggregates orders in one pass. "Today" compares the
// YYYY-MM-DD prefix of the payment and retrieval dates with now.
func CalculateStats(orders []order.Data, now time.Time) Stats {
	today := now.Format(record.DateLayout)
	stats := Stats{TotalAmount: decimal.Zero}

	for _, o := range orders {
		stats.Count++
		stats.TotalPhotos += o.TotalPhotos
		stats.TotalAmount = stats.TotalAmount.Add(o.TotalPrice)
		if o.Status.IsPaid() && strings.HasPrefix(o.PaymentDate, today) {
			stats.PaidToday++
		}
		if o.Status == record.StatusRetrieved && strings.HasPrefix(o.RetrievalDate, today) {
			stats.RetrievedToday++
		}
	}
	return stats
}
