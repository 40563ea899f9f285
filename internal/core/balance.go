package core

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is the reconciled lesson-credit position of one student. Purchased,
// Remaining and Debt are dimensionless lesson units, not money; they must not
// be currency-converted for display.
type Balance struct {
	Purchased decimal.Decimal
	Completed int
	Remaining decimal.Decimal
	Debt      decimal.Decimal

	// Indeterminate is set when the student's price is zero or negative, in
	// which case Purchased is reported as zero instead of dividing by zero.
	Indeterminate bool
	// MissingRates lists currencies whose income entries contributed zero
	// because no exchange rate was available.
	MissingRates []Currency
}

// ComputeBalance reconciles payments against consumed lessons for one student.
// Every income entry is converted into the student's price currency, the sum
// divided by the price per lesson, and the completed lesson count subtracted.
// Exactly one of Remaining and Debt is positive, or both are zero.
//
// The function is pure over the snapshot it is handed; it performs no I/O and
// never returns Inf or NaN.
func ComputeBalance(student Student, transactions []Transaction, rates RateTable) Balance {
	var b Balance
	incomeSum := decimal.Zero
	missing := map[Currency]struct{}{}

	for _, t := range transactions {
		if !t.Matches(student) {
			continue
		}
		switch t.Kind {
		case Income:
			v, err := Convert(t.Amount, t.Currency, student.Currency, rates)
			if err != nil {
				if errors.Is(err, ErrMissingRate) {
					missing[t.Currency] = struct{}{}
				}
				continue // aggregation policy: missing rate contributes zero
			}
			incomeSum = incomeSum.Add(v)
		case Lesson:
			b.Completed++
		}
	}

	if student.Price.IsPositive() {
		b.Purchased = incomeSum.Div(student.Price)
	} else {
		b.Indeterminate = true
	}

	signed := b.Purchased.Sub(decimal.NewFromInt(int64(b.Completed)))
	if signed.IsPositive() {
		b.Remaining = signed
		b.Debt = decimal.Zero
	} else {
		b.Remaining = decimal.Zero
		b.Debt = signed.Neg()
	}

	for c := range missing {
		b.MissingRates = append(b.MissingRates, c)
	}
	sort.Slice(b.MissingRates, func(i, j int) bool { return b.MissingRates[i] < b.MissingRates[j] })
	return b
}
