package store

import (
	"context"
	"errors"
	"time"

	"tutorledger/internal/core"
)

// ErrNotFound is returned when an id or singleton key has no record.
var ErrNotFound = errors.New("record not found")

// Settings singleton keys.
const (
	KeyExpectedIncome = "expectedIncome"
	KeyDebt           = "debt"
)

// Ports for the durable document store. The store owns the data; the ledger
// service keeps the in-session working copy.
type (
	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// CreateTransaction persists the record and returns the assigned id.
		CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
		// UpdateTransaction replaces every field except the id.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	StudentStore interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
		CreateStudent(ctx context.Context, s core.Student) (string, error)
		UpdateStudent(ctx context.Context, s core.Student) error
		DeleteStudent(ctx context.Context, id string) error
	}

	// SettingStore reads and writes singleton records whole, last write wins.
	SettingStore interface {
		GetSetting(ctx context.Context, key string) (core.Setting, bool, error)
		PutSetting(ctx context.Context, key string, s core.Setting) error
	}

	// RateStore persists the latest exchange-rate snapshot so a fresh session
	// starts from the previous table instead of an empty one.
	RateStore interface {
		LoadRates(ctx context.Context) (core.RateTable, time.Time, error)
		SaveRates(ctx context.Context, rates core.RateTable, fetchedAt time.Time) error
	}
)

// Store is the full document-store surface a backend must provide.
type Store interface {
	TransactionStore
	StudentStore
	SettingStore
	RateStore
}
