package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Lesson  Kind = "lesson"
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	KES Currency = "KES"
	RUB Currency = "RUB"

	// Reference is the currency all rate tables are anchored to.
	Reference = USD
)

type (
	Kind     string
	Currency string

	// RateTable maps a currency to its value relative to Reference.
	RateTable map[Currency]decimal.Decimal

	Date struct {
		time.Time
	}

	// Transaction is a single ledger entry. Income and expense entries carry
	// an amount and a currency; lesson entries are consumption events and
	// carry neither.
	Transaction struct {
		ID          string
		Kind        Kind
		Category    string // student name for income/lesson, expense label for expense
		StudentID   string // stamped at creation for student-bound entries, immutable
		Amount      decimal.Decimal
		Currency    Currency
		Date        Date
		Description string
		Subject     string
	}

	Student struct {
		ID       string
		Name     string
		Subjects []string
		Price    decimal.Decimal // cost of one lesson, in Currency
		Currency Currency
	}

	// Setting is a singleton amount record (expected income, debt target).
	Setting struct {
		Amount   decimal.Decimal
		Currency Currency
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrUnknownCurrency  = errors.New("unknown currency code")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptySubject     = errors.New("empty subject")
	ErrEmptyName        = errors.New("empty student name")
	ErrNegativePrice    = errors.New("price must not be negative")
	ErrInvalidDate      = errors.New("invalid date")

	ErrMissingRate = errors.New("missing exchange rate")
	ErrZeroPrice   = errors.New("student price is zero")
)

// KnownCurrencies is the tracked currency set. Extending it is a data change,
// not a code change: rate tables may carry more codes than listed here.
var KnownCurrencies = []Currency{USD, EUR, KES, RUB}

func (c Currency) Known() bool {
	for _, k := range KnownCurrencies {
		if c == k {
			return true
		}
	}
	return false
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts an ISO date or date-time string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO renders the date portion only, the format stored and matched on.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (t Transaction) Validate() error {
	switch t.Kind {
	case Income, Expense:
		if strings.TrimSpace(t.Category) == "" {
			return ErrEmptyCategory
		}
		if t.Amount.IsNegative() {
			return ErrNegativeAmount
		}
		if !t.Currency.Known() {
			return ErrUnknownCurrency
		}
	case Lesson:
		if strings.TrimSpace(t.Category) == "" {
			return ErrEmptyCategory
		}
		if strings.TrimSpace(t.Description) == "" {
			return ErrEmptyDescription
		}
		if strings.TrimSpace(t.Subject) == "" {
			return ErrEmptySubject
		}
	default:
		return ErrInvalidKind
	}
	return t.Date.Validate()
}

func (v Setting) Validate() error {
	if v.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !v.Currency.Known() {
		return ErrUnknownCurrency
	}
	return nil
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Price.IsNegative() {
		return ErrNegativePrice
	}
	if !s.Currency.Known() {
		return ErrUnknownCurrency
	}
	return nil
}

// Matches reports whether the transaction belongs to the student. The join is
// exact: the stamped student ID when present, otherwise category equality with
// the student's name for records created before IDs were stamped. Substring
// matching is never used here; that heuristic belongs to calendar suggestions.
func (t Transaction) Matches(s Student) bool {
	if t.StudentID != "" {
		return t.StudentID == s.ID
	}
	return t.Category == s.Name
}
