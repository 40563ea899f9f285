package http

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"tutorledger/internal/core"
	"tutorledger/internal/ledger"
)

type studentRow struct {
	ID            string
	Name          string
	Subjects      string
	Price         string
	Purchased     string
	Completed     int
	Remaining     string
	Debt          string
	InDebt        bool
	Indeterminate bool
	MissingRates  string
}

type overviewView struct {
	Period         string
	Year           int
	Month          int
	Display        string
	MonthIncome    string
	MonthExpense   string
	YearIncome     string
	YearExpense    string
	ExpectedIncome string
	Debt           string
	MissingRates   string
	Students       []studentRow
}

type transactionRow struct {
	ID          string
	Date        string
	Kind        string
	Category    string
	Amount      string
	Description string
	Subject     string
}

type rateRow struct {
	Code string
	Rate string
}

// rateRows renders the current table as sorted code/rate pairs with the
// time it was fetched, or nothing when no rate source is wired.
func (s *Server) rateRows(r *http.Request) ([]rateRow, string) {
	if s.rates == nil {
		return nil, ""
	}
	table := s.rates.Rates(r.Context())
	rows := make([]rateRow, 0, len(table))
	for code, rate := range table {
		rows = append(rows, rateRow{Code: string(code), Rate: rate.String()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })

	var asOf string
	if at := s.rates.FetchedAt(); !at.IsZero() {
		asOf = at.Format("2006-01-02 15:04 MST")
	}
	return rows, asOf
}

func (s *Server) overviewView(ov ledger.Overview, period core.Period) overviewView {
	view := overviewView{
		Period:         period.String(),
		Year:           period.Year,
		Month:          period.Month,
		Display:        string(ov.Display),
		MonthIncome:    formatAmount(ov.Month.TotalIncome, ov.Display),
		MonthExpense:   formatAmount(ov.Month.TotalExpense, ov.Display),
		YearIncome:     formatAmount(ov.Year.TotalIncome, ov.Display),
		YearExpense:    formatAmount(ov.Year.TotalExpense, ov.Display),
		ExpectedIncome: formatAmount(ov.ExpectedIncome, ov.Display),
		Debt:           formatAmount(ov.Debt, ov.Display),
		MissingRates:   joinCurrencies(ov.Month.MissingRates),
	}
	for _, sb := range ov.Students {
		view.Students = append(view.Students, studentRowView(sb))
	}
	return view
}

func studentRowView(sb ledger.StudentBalance) studentRow {
	st, b := sb.Student, sb.Balance
	return studentRow{
		ID:            st.ID,
		Name:          st.Name,
		Subjects:      strings.Join(st.Subjects, ", "),
		Price:         formatAmount(st.Price, st.Currency),
		Purchased:     b.Purchased.StringFixed(1),
		Completed:     b.Completed,
		Remaining:     b.Remaining.StringFixed(1),
		Debt:          b.Debt.StringFixed(1),
		InDebt:        b.Debt.IsPositive(),
		Indeterminate: b.Indeterminate,
		MissingRates:  joinCurrencies(b.MissingRates),
	}
}

func joinCurrencies(list []core.Currency) string {
	parts := make([]string, len(list))
	for i, c := range list {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	transactions := s.service.Transactions(r.Context())

	// Most recent first, capped for the dashboard table.
	var recent []transactionRow
	for i := len(transactions) - 1; i >= 0 && len(recent) < 20; i-- {
		t := transactions[i]
		row := transactionRow{
			ID:          t.ID,
			Date:        t.Date.ISO(),
			Kind:        string(t.Kind),
			Category:    t.Category,
			Description: t.Description,
			Subject:     t.Subject,
		}
		if t.Kind != core.Lesson {
			row.Amount = formatAmount(t.Amount, t.Currency)
		}
		recent = append(recent, row)
	}

	rates, ratesAsOf := s.rateRows(r)
	data := struct {
		Year       int
		Month      int
		Today      string
		Students   []core.Student
		Recent     []transactionRow
		Currencies []core.Currency
		Display    string
		EventsOn   bool
		Rates      []rateRow
		RatesAsOf  string
	}{
		Year:       now.Year(),
		Month:      int(now.Month()),
		Today:      now.Format("2006-01-02"),
		Students:   s.service.Students(r.Context()),
		Recent:     recent,
		Currencies: core.KnownCurrencies,
		Display:    string(s.display),
		EventsOn:   s.events != nil,
		Rates:      rates,
		RatesAsOf:  ratesAsOf,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	period := parsePeriod(r)
	display := s.queryCurrency(r)
	cacheKey := period.String() + "|" + string(display)

	ov, ok := s.overviewCache.Get(cacheKey)
	if !ok {
		var err error
		ov, err = s.service.Overview(r.Context(), period, display)
		if err != nil {
			slog.ErrorContext(r.Context(), "Overview failed", "error", err, "period", cacheKey)
			http.Error(w, "overview unavailable", http.StatusInternalServerError)
			return
		}
		s.overviewCache.Set(cacheKey, ov)
	}

	if err := s.templates.ExecuteTemplate(w, "overview.html", s.overviewView(ov, period)); err != nil {
		slog.ErrorContext(r.Context(), "Overview template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
