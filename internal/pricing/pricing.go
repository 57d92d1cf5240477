// Package pricing derives the price a client pays for a catalog service.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validation errors returned by ValidateDiscount and ValidatePrice.
var (
	ErrDiscountOutOfRange = errors.New("discount_out_of_range")
	ErrNegativePrice      = errors.New("price_must_not_be_negative")
)

// FinalPrice applies discount (a whole percentage) to base.
// A nil, zero, negative or above-100 discount leaves base untouched.
// The discounted result is rounded to 2 places, halves away from zero.
func FinalPrice(base decimal.Decimal, discount *int) decimal.Decimal {
	if discount == nil || *discount <= 0 || *discount > 100 {
		return base
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(*discount)))
	return base.Mul(factor).Div(hundred).Round(2)
}

// ValidateDiscount rejects a discount outside [0,100]. Nil means no discount.
func ValidateDiscount(discount *int) error {
	if discount == nil {
		return nil
	}
	if *discount < 0 || *discount > 100 {
		return ErrDiscountOutOfRange
	}
	return nil
}

// ValidatePrice rejects negative amounts.
func ValidatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// LineTotal is qty x unit price.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
