// =============================================================================
// Photo Sale Ledger - Export Pipelines
// =============================================================================
//
// Pure functions over ledger and side-ledger snapshots. They never touch the
// files; the Exporter reads the snapshots through the ledger Repository and
// writes the results with the writers of this package.
//
// REPORTS:
//   | Kind                 | Source rows                       | Format     |
//   |----------------------|-----------------------------------|------------|
//   | printer_summary      | PAID orders, USB folder excluded  | text       |
//   | picking_by_activity  | PAID orders                       | text       |
//   | picking_by_photo     | PAID orders                       | text       |
//   | picking_by_order     | PAID orders                       | text       |
//   | distribution_list    | PAID orders not yet retrieved     | text       |
//   | daily_settlement     | settlement rows of one day        | csv + xlsx |
//   | supplier_split       | PAID orders, split on USB folder  | csv + xlsx |
//
// "PAID" means command_status == paid: orders that are paid but whose photos
// have not been handed over yet.
//
// =============================================================================

package export

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// Report kinds.
const (
	KindPrinterSummary    = "printer_summary"
	KindPickingByActivity = "picking_by_activity"
	KindPickingByPhoto    = "picking_by_photo"
	KindPickingByOrder    = "picking_by_order"
	KindDistributionList  = "distribution_list"
	KindDailySettlement   = "daily_settlement"
	KindSupplierSplit     = "supplier_split"
)

// AllKinds lists every report kind in generation order.
var AllKinds = []string{
	KindPrinterSummary,
	KindPickingByActivity,
	KindPickingByPhoto,
	KindPickingByOrder,
	KindDistributionList,
	KindDailySettlement,
	KindSupplierSplit,
}

// PaidRows returns the rows of orders whose status is exactly PAID.
func PaidRows(rows []record.Row) []record.Row {
	var paid []record.Row
	for _, row := range rows {
		if row.Status() == record.StatusPaid {
			paid = append(paid, row)
		}
	}
	return paid
}

// =============================================================================
// PRINTER SUMMARY
// =============================================================================

// PrintLine is the total quantity to print of one photo.
type PrintLine struct {
	Activity string
	Photo    string
	Quantity int
}

// PrinterSummary sums quantities per (activity, photo), across every order.
// Line items of the USB folder are not printed and are skipped. Lines are
// sorted by activity then photo.
func PrinterSummary(rows []record.Row, usbFolder string) []PrintLine {
	type key struct{ activity, photo string }
	totals := make(map[key]int)

	for _, row := range rows {
		activity := row.Get(record.FieldActivityKey)
		if record.IsUSBFolder(activity, usbFolder) {
			continue
		}
		k := key{activity, row.Get(record.FieldPhotoName)}
		totals[k] += row.Quantity()
	}

	lines := make([]PrintLine, 0, len(totals))
	for k, quantity := range totals {
		if quantity == 0 {
			continue
		}
		lines = append(lines, PrintLine{Activity: k.activity, Photo: k.photo, Quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Activity != lines[j].Activity {
			return lines[i].Activity < lines[j].Activity
		}
		return lines[i].Photo < lines[j].Photo
	})
	return lines
}

// =============================================================================
// PICKING LISTS
// =============================================================================

// PickEntry is one checkbox of a picking list.
type PickEntry struct {
	Reference string
	Customer  string
	Activity  string
	Photo     string
	Quantity  int
}

// PickGroup is one section of a picking list.
type PickGroup struct {
	Title   string
	Entries []PickEntry
	Total   int
}

func pickEntry(row record.Row) PickEntry {
	return PickEntry{
		Reference: row.Reference(),
		Customer:  customerName(row),
		Activity:  row.Get(record.FieldActivityKey),
		Photo:     row.Get(record.FieldPhotoName),
		Quantity:  row.Quantity(),
	}
}

// groupBy groups rows under the key returned by keyOf. Groups are sorted by
// title when sorted is set, else kept in first-seen order. Entries keep file
// order.
func groupBy(rows []record.Row, keyOf func(record.Row) string, titleOf func(string) string, sorted bool) []PickGroup {
	index := make(map[string]int)
	var groups []PickGroup

	for _, row := range rows {
		key := keyOf(row)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PickGroup{Title: titleOf(key)})
		}
		entry := pickEntry(row)
		groups[i].Entries = append(groups[i].Entries, entry)
		groups[i].Total += entry.Quantity
	}

	if sorted {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	}
	return groups
}

// PickingByActivity groups line items by activity folder.
func PickingByActivity(rows []record.Row, displayName func(string) string) []PickGroup {
	if displayName == nil {
		displayName = func(key string) string { return key }
	}
	return groupBy(rows,
		func(row record.Row) string { return row.Get(record.FieldActivityKey) },
		displayName,
		true)
}

// PickingByPhoto groups line items by (activity, photo).
func PickingByPhoto(rows []record.Row) []PickGroup {
	return groupBy(rows,
		func(row record.Row) string {
			return row.Get(record.FieldActivityKey) + " / " + row.Get(record.FieldPhotoName)
		},
		func(key string) string { return key },
		true)
}

// PickingByOrder groups line items by order, in ledger order.
func PickingByOrder(rows []record.Row) []PickGroup {
	names := make(map[string]string)
	for _, row := range rows {
		if _, ok := names[row.Reference()]; !ok {
			names[row.Reference()] = customerName(row)
		}
	}
	return groupBy(rows,
		func(row record.Row) string { return row.Reference() },
		func(ref string) string { return ref + " - " + names[ref] },
		false)
}

// =============================================================================
// DISTRIBUTION LIST
// =============================================================================

// DistributionEntry is one order to hand over.
type DistributionEntry struct {
	Reference string
	Customer  string
	Phone     string
	Photos    int
	USB       int
	Amount    decimal.Decimal
}

// DistributionList returns one entry per PAID order not yet retrieved, in
// ledger order.
func DistributionList(rows []record.Row, usbFolder string) []DistributionEntry {
	refs, groups := record.GroupByReference(rows)
	entries := make([]DistributionEntry, 0, len(refs))

	for _, ref := range refs {
		group := groups[ref]
		first := group[0]
		if first.Status() != record.StatusPaid || strings.TrimSpace(first.Get(record.FieldRetrievalDate)) != "" {
			continue
		}
		settlement := record.BuildSettlement(group, usbFolder)
		entries = append(entries, DistributionEntry{
			Reference: ref,
			Customer:  customerName(first),
			Phone:     first.Get(record.FieldPhone),
			Photos:    settlement.Photos,
			USB:       settlement.USB,
			Amount:    settlement.Amount,
		})
	}
	return entries
}

// =============================================================================
// DAILY SETTLEMENT
// =============================================================================

// DailySettlement returns the settlement rows whose payment date starts with
// day (YYYY-MM-DD), and their total amount.
func DailySettlement(settlements []record.SettlementRecord, day string) ([]record.SettlementRecord, decimal.Decimal) {
	var selected []record.SettlementRecord
	total := decimal.Zero
	for _, settlement := range settlements {
		if strings.HasPrefix(strings.TrimSpace(settlement.PaymentDate), day) {
			selected = append(selected, settlement)
			total = total.Add(settlement.Amount)
		}
	}
	return selected, total
}

// =============================================================================
// SUPPLIER SPLIT
// =============================================================================

// SupplierLine is one line item routed to a supplier.
type SupplierLine struct {
	Reference string
	Customer  string
	Activity  string
	Photo     string
	Quantity  int
}

// SupplierOrder is the split of the line items between the print supplier
// (A) and the USB supplier (B).
type SupplierOrder struct {
	SupplierA []SupplierLine
	SupplierB []SupplierLine
}

// SupplierSplit routes every line item to supplier A, unless its activity
// folder is the USB folder, which goes to supplier B.
func SupplierSplit(rows []record.Row, usbFolder string) SupplierOrder {
	var split SupplierOrder
	for _, row := range rows {
		line := SupplierLine{
			Reference: row.Reference(),
			Customer:  customerName(row),
			Activity:  row.Get(record.FieldActivityKey),
			Photo:     row.Get(record.FieldPhotoName),
			Quantity:  row.Quantity(),
		}
		if record.IsUSBFolder(line.Activity, usbFolder) {
			split.SupplierB = append(split.SupplierB, line)
		} else {
			split.SupplierA = append(split.SupplierA, line)
		}
	}
	return split
}

// =============================================================================
// HELPERS
// =============================================================================

func customerName(row record.Row) string {
	return strings.TrimSpace(row.Get(record.FieldLastname) + " " + row.Get(record.FieldFirstname))
}
