package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Convert translates amount from one currency to another using a rate table
// anchored to Reference. Same-currency conversion returns the amount untouched,
// regardless of the table's contents. The converter never rounds; rounding to
// two decimals is a presentation concern.
func Convert(amount decimal.Decimal, from, to Currency, rates RateTable) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := rates[from]
	if !ok || fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, from)
	}
	toRate, ok := rates[to]
	if !ok || toRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, to)
	}
	return amount.Mul(toRate).Div(fromRate), nil
}

// ConvertOrZero is the aggregation fallback: a missing rate contributes zero,
// so sums never overstate a total. Callers are expected to surface the gap
// (see Balance.MissingRates, Summary.MissingRates).
func ConvertOrZero(amount decimal.Decimal, from, to Currency, rates RateTable) decimal.Decimal {
	v, err := Convert(amount, from, to, rates)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ConvertOrSame is the single-value display fallback: a missing rate leaves
// the amount in its original currency rather than showing zero.
func ConvertOrSame(amount decimal.Decimal, from, to Currency, rates RateTable) decimal.Decimal {
	v, err := Convert(amount, from, to, rates)
	if err != nil {
		return amount
	}
	return v
}
