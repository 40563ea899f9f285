package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"tutorledger/internal/amqp"
	"tutorledger/internal/core"
	"tutorledger/internal/store"
)

// RateProvider supplies the conversion table used by balance and report
// computations.
type RateProvider interface {
	Rates(ctx context.Context) core.RateTable
}

// StaticRates is a fixed RateProvider for tests and offline use.
type StaticRates core.RateTable

func (r StaticRates) Rates(context.Context) core.RateTable { return core.RateTable(r) }

// EventPublisher receives best-effort change notifications after writes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, entity, id, action string) error
}

// StudentBalance pairs a student with their computed lesson balance.
type StudentBalance struct {
	Student core.Student
	Balance core.Balance
}

// Overview is the dashboard snapshot: every student's balance plus the
// month and year aggregates in the display currency.
type Overview struct {
	Students       []StudentBalance
	Month          core.Summary
	Year           core.Summary
	ExpectedIncome decimal.Decimal
	Debt           decimal.Decimal
	Display        core.Currency
}

// Service holds the working copy of the ledger and coordinates writes:
// store first, then the in-memory copy, then a best-effort event publish.
// A write that fails in the store leaves the working copy untouched.
type Service struct {
	store  store.Store
	rates  RateProvider
	events EventPublisher

	mu           sync.RWMutex
	transactions []core.Transaction
	students     []core.Student
}

func NewService(st store.Store, rates RateProvider, events EventPublisher) *Service {
	return &Service{store: st, rates: rates, events: events}
}

// Load replaces the working copy with the store's current contents.
// Called once at startup; afterwards writes keep the copy in sync.
func (s *Service) Load(ctx context.Context) error {
	transactions, err := s.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("load students: %w", err)
	}

	s.mu.Lock()
	s.transactions = transactions
	s.students = students
	s.mu.Unlock()

	slog.InfoContext(ctx, "loaded ledger",
		"transactions", len(transactions), "students", len(students))
	return nil
}

// Transactions returns a copy of the working set, newest last.
func (s *Service) Transactions(_ context.Context) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions...)
}

// Students returns a copy of the roster.
func (s *Service) Students(_ context.Context) []core.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Student(nil), s.students...)
}

// AddTransaction validates and persists a transaction. When the category
// names a known student and no student ID is set, the student's ID is
// stamped onto the row so later renames cannot detach history.
func (s *Service) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}
	s.stampStudentID(&t)

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.mu.Lock()
	s.transactions = append(s.transactions, t)
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityTransaction, id, amqp.ActionCreated)
	return id, nil
}

// UpdateTransaction replaces an existing row. The stored student ID is
// preserved unless the caller set one explicitly.
func (s *Service) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.RLock()
	var current *core.Transaction
	for i := range s.transactions {
		if s.transactions[i].ID == t.ID {
			current = &s.transactions[i]
			break
		}
	}
	if current != nil && t.StudentID == "" {
		t.StudentID = current.StudentID
	}
	s.mu.RUnlock()
	if t.StudentID == "" {
		s.stampStudentID(&t)
	}

	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == t.ID {
			s.transactions[i] = t
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityTransaction, t.ID, amqp.ActionUpdated)
	return nil
}

func (s *Service) RemoveTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityTransaction, id, amqp.ActionDeleted)
	return nil
}

func (s *Service) AddStudent(ctx context.Context, st core.Student) (string, error) {
	if err := st.Validate(); err != nil {
		return "", fmt.Errorf("validate student: %w", err)
	}

	id, err := s.store.CreateStudent(ctx, st)
	if err != nil {
		return "", fmt.Errorf("save student: %w", err)
	}
	st.ID = id

	s.mu.Lock()
	s.students = append(s.students, st)
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityStudent, id, amqp.ActionCreated)
	return id, nil
}

// UpdateStudent replaces roster data. The ID is immutable, so renaming a
// student keeps ID-stamped transaction history attached.
func (s *Service) UpdateStudent(ctx context.Context, st core.Student) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate student: %w", err)
	}

	if err := s.store.UpdateStudent(ctx, st); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	s.mu.Lock()
	for i := range s.students {
		if s.students[i].ID == st.ID {
			s.students[i] = st
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityStudent, st.ID, amqp.ActionUpdated)
	return nil
}

// RemoveStudent deletes the roster entry. Transactions keep their stamped
// student ID and simply stop matching anyone.
func (s *Service) RemoveStudent(ctx context.Context, id string) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	s.mu.Lock()
	for i := range s.students {
		if s.students[i].ID == id {
			s.students = append(s.students[:i], s.students[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.publish(ctx, amqp.EntityStudent, id, amqp.ActionDeleted)
	return nil
}

// ExpectedIncome returns the configured monthly income target, or zero
// values when unset.
func (s *Service) ExpectedIncome(ctx context.Context) (core.Setting, error) {
	return s.setting(ctx, store.KeyExpectedIncome)
}

func (s *Service) SetExpectedIncome(ctx context.Context, v core.Setting) error {
	return s.putSetting(ctx, store.KeyExpectedIncome, v)
}

// Debt returns the configured outstanding-debt amount, or zero values
// when unset.
func (s *Service) Debt(ctx context.Context) (core.Setting, error) {
	return s.setting(ctx, store.KeyDebt)
}

func (s *Service) SetDebt(ctx context.Context, v core.Setting) error {
	return s.putSetting(ctx, store.KeyDebt, v)
}

func (s *Service) setting(ctx context.Context, key string) (core.Setting, error) {
	v, ok, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return core.Setting{}, fmt.Errorf("get setting %s: %w", key, err)
	}
	if !ok {
		return core.Setting{Currency: core.Reference}, nil
	}
	return v, nil
}

func (s *Service) putSetting(ctx context.Context, key string, v core.Setting) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validate setting %s: %w", key, err)
	}
	if err := s.store.PutSetting(ctx, key, v); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// StudentBalance computes one student's balance from the working copy.
func (s *Service) StudentBalance(ctx context.Context, studentID string) (StudentBalance, error) {
	rates := s.rates.Rates(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.ID == studentID {
			return StudentBalance{
				Student: st,
				Balance: core.ComputeBalance(st, s.transactions, rates),
			}, nil
		}
	}
	return StudentBalance{}, fmt.Errorf("%w: student %s", store.ErrNotFound, studentID)
}

// Overview computes the dashboard snapshot for the given period in the
// display currency. Settings that cannot be converted keep their stored
// amount rather than showing zero.
func (s *Service) Overview(ctx context.Context, period core.Period, display core.Currency) (Overview, error) {
	rates := s.rates.Rates(ctx)

	expected, err := s.ExpectedIncome(ctx)
	if err != nil {
		return Overview{}, err
	}
	debt, err := s.Debt(ctx)
	if err != nil {
		return Overview{}, err
	}

	s.mu.RLock()
	transactions := append([]core.Transaction(nil), s.transactions...)
	students := append([]core.Student(nil), s.students...)
	s.mu.RUnlock()

	out := Overview{
		Month:          core.Aggregate(transactions, period, display, rates),
		Year:           core.Aggregate(transactions, core.Period{Year: period.Year}, display, rates),
		ExpectedIncome: core.ConvertOrSame(expected.Amount, expected.Currency, display, rates),
		Debt:           core.ConvertOrSame(debt.Amount, debt.Currency, display, rates),
		Display:        display,
	}
	for _, st := range students {
		out.Students = append(out.Students, StudentBalance{
			Student: st,
			Balance: core.ComputeBalance(st, transactions, rates),
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, entity, id, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, entity, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "id", id, "action", action, "error", err)
		// Don't fail the request, the write already landed in the store.
	}
}

// stampStudentID resolves a category that exactly equals a student's name
// to that student's immutable ID. Fuzzy matching is reserved for calendar
// suggestions and never used here.
func (s *Service) stampStudentID(t *core.Transaction) {
	if t.StudentID != "" {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.Name == t.Category {
			t.StudentID = st.ID
			return
		}
	}
}
