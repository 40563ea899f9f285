package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Period selects a reporting window: a whole year, or one month of it when
// Month is non-zero.
type Period struct {
	Year  int
	Month int
}

func (p Period) Contains(d Date) bool {
	if d.IsZero() || d.Year() != p.Year {
		return false
	}
	return p.Month == 0 || int(d.Month()) == p.Month
}

func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Summary holds period totals denominated in a single display currency.
type Summary struct {
	Period       Period
	Currency     Currency
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal

	// MissingRates lists currencies whose entries contributed zero because no
	// exchange rate was available.
	MissingRates []Currency
}

// Aggregate sums income and expense entries inside the period, each converted
// to the display currency before accumulation. Lesson entries carry no value
// and are always excluded. An entry without a currency is assumed to be in the
// reference currency; an entry whose rate is missing contributes zero.
func Aggregate(transactions []Transaction, period Period, display Currency, rates RateTable) Summary {
	s := Summary{Period: period, Currency: display, TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	missing := map[Currency]struct{}{}

	for _, t := range transactions {
		if t.Kind == Lesson || !period.Contains(t.Date) {
			continue
		}
		from := t.Currency
		if from == "" {
			from = Reference
		}
		v, err := Convert(t.Amount, from, display, rates)
		if err != nil {
			if errors.Is(err, ErrMissingRate) {
				missing[from] = struct{}{}
			}
			continue
		}
		switch t.Kind {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(v)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(v)
		}
	}

	for c := range missing {
		s.MissingRates = append(s.MissingRates, c)
	}
	sort.Slice(s.MissingRates, func(i, j int) bool { return s.MissingRates[i] < s.MissingRates[j] })
	return s
}
