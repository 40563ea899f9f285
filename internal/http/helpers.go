package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tutorledger/internal/core"
)

// parsePeriod extracts year and month from query parameters, defaulting
// to the current month.
func parsePeriod(r *http.Request) core.Period {
	now := time.Now()
	p := core.Period{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			p.Year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			p.Month = m
		}
	}
	return p
}

// formDate parses the date form field, defaulting to today when empty.
func formDate(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.Form.Get("date"))
	if v == "" {
		now := time.Now()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(v)
}

// formAmount parses a decimal amount form field.
func formAmount(r *http.Request, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(r.Form.Get(field))
	if v == "" {
		return decimal.Zero, nil
	}
	// Accept comma decimal separators from locale-configured browsers.
	v = strings.ReplaceAll(v, ",", ".")
	return decimal.NewFromString(v)
}

// formCurrency reads a currency code field, defaulting to the display
// currency.
func (s *Server) formCurrency(r *http.Request) core.Currency {
	v := core.Currency(strings.ToUpper(strings.TrimSpace(r.Form.Get("currency"))))
	if !v.Known() {
		return s.display
	}
	return v
}

// queryCurrency reads the display currency from the query string,
// defaulting to the configured display currency.
func (s *Server) queryCurrency(r *http.Request) core.Currency {
	v := core.Currency(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))))
	if !v.Known() {
		return s.display
	}
	return v
}

var currencySymbols = map[core.Currency]string{
	core.USD: "$",
	core.EUR: "€",
	core.KES: "KSh ",
	core.RUB: "₽",
}

// formatAmount renders an amount for display, two decimal places with the
// currency symbol.
func formatAmount(amount decimal.Decimal, currency core.Currency) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = string(currency) + " "
	}
	if amount.IsNegative() {
		return "-" + symbol + amount.Neg().StringFixed(2)
	}
	return symbol + amount.StringFixed(2)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// writeFormSuccess writes an inline success snippet for form swaps.
func writeFormSuccess(w http.ResponseWriter, msg string) {
	_, _ = w.Write([]byte(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`))
}

func writeFormErrorText(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}

func writeFormError(w http.ResponseWriter, status int, err error) {
	writeFormErrorText(w, status, err.Error())
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
