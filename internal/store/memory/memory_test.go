package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tutorledger/internal/core"
	"tutorledger/internal/store"
)

func TestTransactionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.CreateTransaction(ctx, core.Transaction{
		Kind:     core.Income,
		Category: "Alice",
		Amount:   decimal.RequireFromString("40"),
		Currency: core.USD,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	list, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected list: %+v", list)
	}

	updated := list[0]
	updated.Category = "Bob"
	if err := s.UpdateTransaction(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStudentDuplicateName(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateStudent(ctx, core.Student{Name: "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateStudent(ctx, core.Student{Name: "Alice"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, err := s.GetSetting(ctx, store.KeyDebt); err != nil || ok {
		t.Fatalf("expected missing setting, got ok=%v err=%v", ok, err)
	}
	want := core.Setting{Amount: decimal.RequireFromString("120"), Currency: core.EUR}
	if err := s.PutSetting(ctx, store.KeyDebt, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetSetting(ctx, store.KeyDebt)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.Amount.Equal(want.Amount) || got.Currency != want.Currency {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRateSnapshotIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	rates := core.RateTable{core.USD: decimal.NewFromInt(1)}
	at := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveRates(ctx, rates, at); err != nil {
		t.Fatalf("save: %v", err)
	}
	rates[core.EUR] = decimal.NewFromInt(2) // must not leak into the store

	got, fetchedAt, err := s.LoadRates(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !fetchedAt.Equal(at) {
		t.Fatalf("fetchedAt = %v, want %v", fetchedAt, at)
	}
	if _, ok := got[core.EUR]; ok {
		t.Fatal("stored snapshot mutated through caller map")
	}
}
