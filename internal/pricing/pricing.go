// =============================================================================
// Photo Sale Ledger - Activity Pricing Table
// =============================================================================
//
// The pricing table maps an activity key (the photo folder, e.g. "Gala") to
// its display name and unit price. It is consulted when an order is
// validated, to compute each line subtotal.
//
// SOURCES:
//   - The "activities" section of config.yaml
//   - An XLSX workbook (pricing_file), first sheet, one activity per row
//   Rows of the workbook override entries of the same key from config.yaml.
//
// XLSX LAYOUT (default columns):
//
//   | Column A | Column B          | Column C   |
//   |----------|-------------------|------------|
//   | Key      | Display Name      | Unit Price |
//   | Gala     | Gala de danse     | 2.00       |
//   | USB      | Clé USB           | 15,00      |
//
// =============================================================================

package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// ErrUnknownActivity is returned by Lookup for a key absent from the table.
var ErrUnknownActivity = errors.New("unknown activity")

// Activity is one priced activity.
type Activity struct {
	// Key is the folder name stored in the activity_key column.
	Key string

	// DisplayName is shown on picking lists and confirmations.
	DisplayName string

	// UnitPrice is the price of one print (or one USB key).
	UnitPrice decimal.Decimal
}

// Table is an activity-pricing table. Keys match case-insensitively.
type Table struct {
	activities map[string]Activity
}

// New builds a Table from a list of activities. Later entries win.
func New(activities []Activity) *Table {
	t := &Table{activities: make(map[string]Activity, len(activities))}
	for _, activity := range activities {
		t.Set(activity)
	}
	return t
}

// normalizeKey is the lookup form of an activity key.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Set adds or replaces an activity. An empty display name defaults to the key.
func (t *Table) Set(activity Activity) {
	activity.Key = strings.TrimSpace(activity.Key)
	if activity.Key == "" {
		return
	}
	if activity.DisplayName == "" {
		activity.DisplayName = activity.Key
	}
	t.activities[normalizeKey(activity.Key)] = activity
}

// Lookup returns the activity for key.
func (t *Table) Lookup(key string) (Activity, error) {
	activity, ok := t.activities[normalizeKey(key)]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %q", ErrUnknownActivity, key)
	}
	return activity, nil
}

// DisplayName returns the display name of key, or key itself when unknown.
func (t *Table) DisplayName(key string) string {
	if t == nil {
		return key
	}
	if activity, ok := t.activities[normalizeKey(key)]; ok {
		return activity.DisplayName
	}
	return key
}

// Len returns the number of activities.
func (t *Table) Len() int {
	return len(t.activities)
}

// Activities returns every activity sorted by key.
func (t *Table) Activities() []Activity {
	list := make([]Activity, 0, len(t.activities))
	for _, activity := range t.activities {
		list = append(list, activity)
	}
	sort.Slice(list, func(i, j int) bool {
		return normalizeKey(list[i].Key) < normalizeKey(list[j].Key)
	})
	return list
}

// Merge copies every activity of other into t.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for _, activity := range other.activities {
		t.Set(activity)
	}
}

// =============================================================================
// XLSX LOADING
// =============================================================================

// SheetColumns defines which workbook columns hold which data (0-based).
type SheetColumns struct {
	KeyColumn         int
	DisplayNameColumn int
	UnitPriceColumn   int

	// DataStartRow is the first data row (0-based). Default: 1 (Row 2).
	DataStartRow int
}

// DefaultSheetColumns returns the layout documented above.
func DefaultSheetColumns() SheetColumns {
	return SheetColumns{
		KeyColumn:         0, // Column A
		DisplayNameColumn: 1, // Column B
		UnitPriceColumn:   2, // Column C
		DataStartRow:      1, // Row 2
	}
}

// LoadXLSX reads a pricing table from the first sheet of a workbook.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//   - columns: The column layout of the sheet.
//
// RETURNS:
//   - The pricing table.
//   - An error if the file cannot be read or a price is not a number.
func LoadXLSX(path string, columns SheetColumns) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pricing file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("pricing file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	table := New(nil)
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		getCell := func(index int) string {
			if index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		key := getCell(columns.KeyColumn)
		if key == "" {
			continue
		}

		price, err := record.ParseAmount(getCell(columns.UnitPriceColumn))
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}

		table.Set(Activity{
			Key:         key,
			DisplayName: getCell(columns.DisplayNameColumn),
			UnitPrice:   price,
		})
	}

	return table, nil
}
