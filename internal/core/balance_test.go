package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func balStudent() Student {
	return Student{ID: "s1", Name: "Alice", Price: dec("20"), Currency: USD}
}

func income(student Student, amount string, currency Currency) Transaction {
	return Transaction{Kind: Income, Category: student.Name, StudentID: student.ID,
		Amount: dec(amount), Currency: currency, Date: NewDate(2024, 9, 1)}
}

func lesson(student Student) Transaction {
	return Transaction{Kind: Lesson, Category: student.Name, StudentID: student.ID,
		Description: "lesson", Subject: "English", Date: NewDate(2024, 9, 2)}
}

func TestComputeBalanceSingleIncome(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1"), KES: dec("130")}
	b := ComputeBalance(s, []Transaction{income(s, "40", USD)}, rates)

	if !b.Purchased.Equal(dec("2")) {
		t.Fatalf("purchased = %s, want 2", b.Purchased)
	}
	if b.Completed != 0 {
		t.Fatalf("completed = %d, want 0", b.Completed)
	}
	if !b.Remaining.Equal(dec("2")) || !b.Debt.IsZero() {
		t.Fatalf("remaining = %s, debt = %s, want 2 and 0", b.Remaining, b.Debt)
	}
}

func TestComputeBalanceMixedCurrencies(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1"), KES: dec("130")}
	txns := []Transaction{
		income(s, "40", USD),   // 2 lessons
		income(s, "2600", KES), // 20 USD -> 1 lesson
		lesson(s), lesson(s), lesson(s),
	}
	b := ComputeBalance(s, txns, rates)

	tolerance := dec("0.0000001")
	if b.Purchased.Sub(dec("3")).Abs().GreaterThan(tolerance) {
		t.Fatalf("purchased = %s, want ~3", b.Purchased)
	}
	if b.Completed != 3 {
		t.Fatalf("completed = %d, want 3", b.Completed)
	}
	if b.Remaining.Abs().GreaterThan(tolerance) || b.Debt.Abs().GreaterThan(tolerance) {
		t.Fatalf("remaining = %s, debt = %s, want ~0 both", b.Remaining, b.Debt)
	}
}

func TestComputeBalanceDebt(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1")}
	txns := []Transaction{income(s, "40", USD)} // 2 lessons' worth
	for i := 0; i < 5; i++ {
		txns = append(txns, lesson(s))
	}
	b := ComputeBalance(s, txns, rates)

	if !b.Remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", b.Remaining)
	}
	if !b.Debt.Equal(dec("3")) {
		t.Fatalf("debt = %s, want 3", b.Debt)
	}
}

func TestComputeBalanceSignExclusivity(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1")}
	for lessons := 0; lessons <= 6; lessons++ {
		txns := []Transaction{income(s, "60", USD)} // 3 lessons' worth
		for i := 0; i < lessons; i++ {
			txns = append(txns, lesson(s))
		}
		b := ComputeBalance(s, txns, rates)
		if b.Remaining.IsPositive() && b.Debt.IsPositive() {
			t.Fatalf("lessons=%d: remaining %s and debt %s both positive", lessons, b.Remaining, b.Debt)
		}
		if b.Remaining.IsNegative() || b.Debt.IsNegative() {
			t.Fatalf("lessons=%d: negative remaining %s or debt %s", lessons, b.Remaining, b.Debt)
		}
	}
}

func TestComputeBalanceLessonMonotonicity(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1")}
	txns := []Transaction{income(s, "100", USD)}

	prev := ComputeBalance(s, txns, rates)
	for i := 0; i < 8; i++ {
		txns = append(txns, lesson(s))
		cur := ComputeBalance(s, txns, rates)
		prevSigned := prev.Remaining.Sub(prev.Debt)
		curSigned := cur.Remaining.Sub(cur.Debt)
		if !prevSigned.Sub(curSigned).Equal(dec("1")) {
			t.Fatalf("step %d: signed remaining moved by %s, want exactly 1", i, prevSigned.Sub(curSigned))
		}
		prev = cur
	}
}

func TestComputeBalanceZeroPrice(t *testing.T) {
	s := Student{ID: "s1", Name: "Alice", Price: decimal.Zero, Currency: USD}
	rates := RateTable{USD: dec("1")}
	b := ComputeBalance(s, []Transaction{income(s, "40", USD), lesson(s)}, rates)

	if !b.Indeterminate {
		t.Fatalf("expected indeterminate flag")
	}
	if !b.Purchased.IsZero() {
		t.Fatalf("purchased = %s, want 0", b.Purchased)
	}
	if b.Completed != 1 || !b.Debt.Equal(dec("1")) {
		t.Fatalf("completed = %d debt = %s, want 1 and 1", b.Completed, b.Debt)
	}
}

func TestComputeBalanceNoTransactions(t *testing.T) {
	b := ComputeBalance(balStudent(), nil, RateTable{USD: dec("1")})
	if !b.Purchased.IsZero() || b.Completed != 0 || !b.Remaining.IsZero() || !b.Debt.IsZero() {
		t.Fatalf("empty ledger should yield all zeros, got %+v", b)
	}
}

func TestComputeBalanceMissingRateContributesZero(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1")} // no KES rate
	b := ComputeBalance(s, []Transaction{income(s, "40", USD), income(s, "2600", KES)}, rates)

	if !b.Purchased.Equal(dec("2")) {
		t.Fatalf("purchased = %s, want 2 (KES income skipped)", b.Purchased)
	}
	if len(b.MissingRates) != 1 || b.MissingRates[0] != KES {
		t.Fatalf("missing rates = %v, want [KES]", b.MissingRates)
	}
}

func TestComputeBalanceExactJoin(t *testing.T) {
	s := balStudent()
	rates := RateTable{USD: dec("1")}
	txns := []Transaction{
		income(s, "40", USD),
		// Same name embedded in other fields or longer categories must not join.
		{Kind: Income, Category: "Alice Smith", Amount: dec("100"), Currency: USD, Date: NewDate(2024, 9, 1)},
		{Kind: Lesson, Category: "Malice", Description: "Alice mentioned", Subject: "IT", Date: NewDate(2024, 9, 1)},
	}
	b := ComputeBalance(s, txns, rates)
	if !b.Purchased.Equal(dec("2")) || b.Completed != 0 {
		t.Fatalf("fuzzy rows leaked into the join: %+v", b)
	}
}
