package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testRates() RateTable {
	return RateTable{
		USD: dec("1"),
		EUR: dec("0.92"),
		KES: dec("130"),
		RUB: dec("90"),
	}
}

func TestConvertSameCurrency(t *testing.T) {
	for _, c := range KnownCurrencies {
		amount := dec("123.456789")
		got, err := Convert(amount, c, c, RateTable{}) // empty table must not matter
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if !got.Equal(amount) {
			t.Fatalf("%s: got %s, want %s unchanged", c, got, amount)
		}
	}
}

func TestConvertCrossCurrency(t *testing.T) {
	rates := testRates()
	cases := []struct {
		amount string
		from   Currency
		to     Currency
		want   string
	}{
		{"2600", KES, USD, "20"},
		{"20", USD, KES, "2600"},
		{"1", USD, EUR, "0.92"},
	}
	for _, tc := range cases {
		got, err := Convert(dec(tc.amount), tc.from, tc.to, rates)
		if err != nil {
			t.Fatalf("%s %s->%s: %v", tc.amount, tc.from, tc.to, err)
		}
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("%s %s->%s: got %s, want %s", tc.amount, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestConvertInverse(t *testing.T) {
	rates := testRates()
	tolerance := dec("0.0000001")
	amount := dec("417.33")
	for _, a := range KnownCurrencies {
		for _, b := range KnownCurrencies {
			there, err := Convert(amount, a, b, rates)
			if err != nil {
				t.Fatalf("%s->%s: %v", a, b, err)
			}
			back, err := Convert(there, b, a, rates)
			if err != nil {
				t.Fatalf("%s->%s: %v", b, a, err)
			}
			if back.Sub(amount).Abs().GreaterThan(tolerance) {
				t.Fatalf("%s->%s->%s: got %s, want ~%s", a, b, a, back, amount)
			}
		}
	}
}

func TestConvertMissingRate(t *testing.T) {
	rates := RateTable{USD: dec("1")}
	if _, err := Convert(dec("10"), KES, USD, rates); !errors.Is(err, ErrMissingRate) {
		t.Fatalf("expected ErrMissingRate, got %v", err)
	}
	if _, err := Convert(dec("10"), USD, KES, rates); !errors.Is(err, ErrMissingRate) {
		t.Fatalf("expected ErrMissingRate, got %v", err)
	}
	// A zero rate is as unusable as an absent one.
	if _, err := Convert(dec("10"), KES, USD, RateTable{USD: dec("1"), KES: decimal.Zero}); !errors.Is(err, ErrMissingRate) {
		t.Fatalf("expected ErrMissingRate for zero rate, got %v", err)
	}
}

func TestConvertFallbacks(t *testing.T) {
	rates := RateTable{USD: dec("1")}
	if got := ConvertOrZero(dec("10"), KES, USD, rates); !got.IsZero() {
		t.Fatalf("ConvertOrZero: got %s, want 0", got)
	}
	if got := ConvertOrSame(dec("10"), KES, USD, rates); !got.Equal(dec("10")) {
		t.Fatalf("ConvertOrSame: got %s, want 10", got)
	}
	// With rates present both behave like Convert.
	full := testRates()
	if got := ConvertOrZero(dec("2600"), KES, USD, full); !got.Equal(dec("20")) {
		t.Fatalf("ConvertOrZero with rates: got %s, want 20", got)
	}
}
