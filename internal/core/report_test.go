package core

import (
	"testing"
)

func TestPeriodContains(t *testing.T) {
	sep := Period{Year: 2024, Month: 9}
	year := Period{Year: 2024}

	cases := []struct {
		d       Date
		inMonth bool
		inYear  bool
	}{
		{NewDate(2024, 9, 1), true, true},
		{NewDate(2024, 9, 30), true, true},
		{NewDate(2024, 8, 31), false, true},
		{NewDate(2023, 9, 15), false, false},
		{Date{}, false, false},
	}
	for i, tc := range cases {
		if got := sep.Contains(tc.d); got != tc.inMonth {
			t.Fatalf("case %d: month Contains = %v, want %v", i, got, tc.inMonth)
		}
		if got := year.Contains(tc.d); got != tc.inYear {
			t.Fatalf("case %d: year Contains = %v, want %v", i, got, tc.inYear)
		}
	}

	if sep.String() != "2024-09" || year.String() != "2024" {
		t.Fatalf("period labels: %q, %q", sep.String(), year.String())
	}
}

func TestAggregateMonth(t *testing.T) {
	rates := testRates()
	txns := []Transaction{
		{Kind: Income, Category: "Alice", Amount: dec("40"), Currency: USD, Date: NewDate(2024, 9, 5)},
		{Kind: Income, Category: "Income", Amount: dec("1300"), Currency: KES, Date: NewDate(2024, 9, 12)},
		{Kind: Expense, Category: "Rent", Amount: dec("30"), Currency: USD, Date: NewDate(2024, 9, 20)},
		{Kind: Lesson, Category: "Alice", Description: "x", Subject: "IT", Date: NewDate(2024, 9, 5)},
		// Outside the month.
		{Kind: Income, Category: "Income", Amount: dec("999"), Currency: USD, Date: NewDate(2024, 8, 30)},
		{Kind: Expense, Category: "Rent", Amount: dec("999"), Currency: USD, Date: NewDate(2023, 9, 1)},
	}
	s := Aggregate(txns, Period{Year: 2024, Month: 9}, USD, rates)

	if !s.TotalIncome.Equal(dec("50")) { // 40 + 1300/130
		t.Fatalf("income = %s, want 50", s.TotalIncome)
	}
	if !s.TotalExpense.Equal(dec("30")) {
		t.Fatalf("expense = %s, want 30", s.TotalExpense)
	}
}

func TestAggregateYear(t *testing.T) {
	rates := testRates()
	txns := []Transaction{
		{Kind: Income, Category: "Income", Amount: dec("10"), Currency: USD, Date: NewDate(2024, 1, 1)},
		{Kind: Income, Category: "Income", Amount: dec("10"), Currency: USD, Date: NewDate(2024, 12, 31)},
		{Kind: Income, Category: "Income", Amount: dec("10"), Currency: USD, Date: NewDate(2025, 1, 1)},
	}
	s := Aggregate(txns, Period{Year: 2024}, USD, rates)
	if !s.TotalIncome.Equal(dec("20")) {
		t.Fatalf("income = %s, want 20", s.TotalIncome)
	}
}

func TestAggregateLessonExclusion(t *testing.T) {
	rates := testRates()
	base := []Transaction{
		{Kind: Income, Category: "Income", Amount: dec("100"), Currency: USD, Date: NewDate(2024, 9, 1)},
		{Kind: Expense, Category: "Rent", Amount: dec("60"), Currency: USD, Date: NewDate(2024, 9, 1)},
	}
	period := Period{Year: 2024, Month: 9}
	before := Aggregate(base, period, USD, rates)

	withLessons := append([]Transaction(nil), base...)
	for i := 0; i < 5; i++ {
		withLessons = append(withLessons, Transaction{Kind: Lesson, Category: "Alice",
			Description: "x", Subject: "IT", Date: NewDate(2024, 9, 1)})
	}
	after := Aggregate(withLessons, period, USD, rates)

	if !before.TotalIncome.Equal(after.TotalIncome) || !before.TotalExpense.Equal(after.TotalExpense) {
		t.Fatalf("lessons changed the aggregate: %+v vs %+v", before, after)
	}
}

func TestAggregateMissingRate(t *testing.T) {
	rates := RateTable{USD: dec("1")}
	txns := []Transaction{
		{Kind: Income, Category: "Income", Amount: dec("40"), Currency: USD, Date: NewDate(2024, 9, 1)},
		{Kind: Income, Category: "Income", Amount: dec("2600"), Currency: KES, Date: NewDate(2024, 9, 1)},
	}
	s := Aggregate(txns, Period{Year: 2024, Month: 9}, USD, rates)

	if !s.TotalIncome.Equal(dec("40")) {
		t.Fatalf("income = %s, want 40 (KES entry contributes zero)", s.TotalIncome)
	}
	if len(s.MissingRates) != 1 || s.MissingRates[0] != KES {
		t.Fatalf("missing rates = %v, want [KES]", s.MissingRates)
	}
}

func TestAggregateDefaultsToReference(t *testing.T) {
	rates := testRates()
	txns := []Transaction{
		// Legacy record with no currency tag: treated as the reference currency.
		{Kind: Income, Category: "Income", Amount: dec("10"), Date: NewDate(2024, 9, 1)},
	}
	s := Aggregate(txns, Period{Year: 2024, Month: 9}, KES, rates)
	if !s.TotalIncome.Equal(dec("1300")) {
		t.Fatalf("income = %s, want 1300", s.TotalIncome)
	}
}
