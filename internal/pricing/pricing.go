// Package pricing holds the monetary arithmetic for catalog and cart totals.
// All results are rounded half-even to two decimal places.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

const Places = 2

var (
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// SpecialPrice returns price − discountPercent/100 × price.
func SpecialPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	off := price.Mul(discountPercent).Div(hundred)
	return Round(price.Sub(off))
}

func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	return Round(sum)
}

func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

func ValidateDiscount(discountPercent decimal.Decimal) error {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	return nil
}
