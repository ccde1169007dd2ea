package record

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts used by the ledger columns.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// acceptedLayouts are tried in order by ParseTimestamp.
var acceptedLayouts = []string{
	DateTimeLayout,
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseTimestamp parses a stored date or date-time in local time.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.TrimPrefix(value, "'"))
	for _, layout := range acceptedLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// GroupByReference groups rows by column 0, keeping the order in which each
// reference first appears and the file order of rows inside each group.
func GroupByReference(rows []Row) ([]string, map[string][]Row) {
	groups := make(map[string][]Row)
	var order []string

	for _, row := range rows {
		ref := row.Reference()
		if ref == "" {
			continue
		}
		if _, exists := groups[ref]; !exists {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], row)
	}

	return order, groups
}

// Divergent returns the order-level fields whose values are not identical on
// every row of the group. A non-empty result indicates a lost or partial
// update.
func Divergent(rows []Row) []Field {
	if len(rows) < 2 {
		return nil
	}

	var fields []Field
	for _, field := range OrderLevelFields {
		first := rows[0].Get(field)
		for _, row := range rows[1:] {
			if row.Get(field) != first {
				fields = append(fields, field)
				break
			}
		}
	}
	return fields
}
