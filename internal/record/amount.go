package record

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a stored money value. Both "6.00" and "6,00" are
// accepted, a trailing euro sign and spaces are ignored.
func ParseAmount(value string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(value)
	clean = strings.TrimSuffix(clean, "€")
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.TrimPrefix(clean, "'")
	clean = strings.Replace(clean, ",", ".", 1)
	if clean == "" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// FormatAmount writes a money value with two decimals and a dot separator.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// LineAmount returns the parsed line_amount of the row, or zero when the
// column is not a number.
func (r Row) LineAmount() decimal.Decimal {
	amount, err := ParseAmount(r.Get(FieldLineAmount))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// Subtotal computes quantity x unit price.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Totals sums the quantities and line amounts of a row group.
func Totals(rows []Row) (photos int, amount decimal.Decimal) {
	amount = decimal.Zero
	for _, row := range rows {
		photos += row.Quantity()
		amount = amount.Add(row.LineAmount())
	}
	return photos, amount
}
