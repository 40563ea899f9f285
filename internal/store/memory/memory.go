package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"tutorledger/internal/core"
	"tutorledger/internal/store"
)

// Store is an in-memory document store for tests and local development.
type Store struct {
	mu           sync.Mutex
	nextID       int64
	transactions []core.Transaction
	students     []core.Student
	settings     map[string]core.Setting

	rates     core.RateTable
	fetchedAt time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{settings: make(map[string]core.Setting)}
}

func (s *Store) assignID() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.assignID()
	s.transactions = append(s.transactions, t)
	return t.ID, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID == t.ID {
			s.transactions[i] = t
			return nil
		}
	}
	return fmt.Errorf("%w: transaction %s", store.ErrNotFound, t.ID)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: transaction %s", store.ErrNotFound, id)
}

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Student(nil), s.students...), nil
}

func (s *Store) CreateStudent(_ context.Context, st core.Student) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.students {
		if existing.Name == st.Name {
			return "", fmt.Errorf("student name %q already exists", st.Name)
		}
	}
	st.ID = s.assignID()
	s.students = append(s.students, st)
	return st.ID, nil
}

func (s *Store) UpdateStudent(_ context.Context, st core.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == st.ID {
			s.students[i] = st
			return nil
		}
	}
	return fmt.Errorf("%w: student %s", store.ErrNotFound, st.ID)
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == id {
			s.students = append(s.students[:i], s.students[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: student %s", store.ErrNotFound, id)
}

func (s *Store) GetSetting(_ context.Context, key string) (core.Setting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) PutSetting(_ context.Context, key string, v core.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = v
	return nil
}

func (s *Store) LoadRates(_ context.Context) (core.RateTable, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates == nil {
		return nil, time.Time{}, nil
	}
	out := make(core.RateTable, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, s.fetchedAt, nil
}

func (s *Store) SaveRates(_ context.Context, rates core.RateTable, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = make(core.RateTable, len(rates))
	for k, v := range rates {
		s.rates[k] = v
	}
	s.fetchedAt = fetchedAt
	return nil
}
