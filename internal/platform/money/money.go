package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToCents converts a 2-dp decimal amount string into integer cents,
// rounding half away from zero.
func ToCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return DecimalToCents(d), nil
}

func DecimalToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents renders integer cents as a 2-dp decimal string.
func FromCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
