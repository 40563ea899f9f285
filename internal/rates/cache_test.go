package rates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tutorledger/internal/core"
	"tutorledger/internal/store/memory"
)

type fakeFeed struct {
	table core.RateTable
	err   error
	calls int
}

func (f *fakeFeed) Fetch(context.Context) (core.RateTable, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(core.RateTable, len(f.table))
	for k, v := range f.table {
		out[k] = v
	}
	return out, nil
}

func testTable() core.RateTable {
	return core.RateTable{
		core.USD: decimal.NewFromInt(1),
		core.EUR: decimal.RequireFromString("0.92"),
		core.KES: decimal.NewFromInt(130),
	}
}

func TestRatesRefreshesWhenStale(t *testing.T) {
	feed := &fakeFeed{table: testTable()}
	now := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	cache := NewCache(feed, nil, WithClock(func() time.Time { return now }))

	got := cache.Rates(context.Background())
	if feed.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", feed.calls)
	}
	if !got[core.KES].Equal(decimal.NewFromInt(130)) {
		t.Fatalf("unexpected table: %v", got)
	}

	// Within the TTL the cached table is served without fetching.
	now = now.Add(23 * time.Hour)
	cache.Rates(context.Background())
	if feed.calls != 1 {
		t.Fatalf("expected cached table, got %d fetches", feed.calls)
	}

	now = now.Add(2 * time.Hour)
	cache.Rates(context.Background())
	if feed.calls != 2 {
		t.Fatalf("expected refresh after TTL, got %d fetches", feed.calls)
	}
}

func TestRatesServesStaleOnFeedFailure(t *testing.T) {
	feed := &fakeFeed{table: testTable()}
	now := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	cache := NewCache(feed, nil, WithClock(func() time.Time { return now }))

	cache.Rates(context.Background())

	feed.err = errors.New("upstream down")
	now = now.Add(48 * time.Hour)
	got := cache.Rates(context.Background())
	if !got[core.EUR].Equal(decimal.RequireFromString("0.92")) {
		t.Fatalf("expected stale table, got %v", got)
	}
}

func TestRatesColdStartWithFeedDown(t *testing.T) {
	feed := &fakeFeed{err: errors.New("upstream down")}
	cache := NewCache(feed, nil)

	got := cache.Rates(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected empty table, got %v", got)
	}
}

func TestWarmLoadsPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.New()
	at := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	if err := snapshots.SaveRates(ctx, testTable(), at); err != nil {
		t.Fatalf("save: %v", err)
	}

	feed := &fakeFeed{err: errors.New("upstream down")}
	now := at.Add(time.Hour)
	cache := NewCache(feed, snapshots, WithClock(func() time.Time { return now }))
	if err := cache.Warm(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}

	got := cache.Rates(ctx)
	if !got[core.KES].Equal(decimal.NewFromInt(130)) {
		t.Fatalf("expected snapshot table, got %v", got)
	}
	if feed.calls != 0 {
		t.Fatalf("expected no fetch for fresh snapshot, got %d", feed.calls)
	}
}

func TestRefreshPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.New()
	feed := &fakeFeed{table: testTable()}
	cache := NewCache(feed, snapshots)

	cache.Rates(ctx)

	saved, _, err := snapshots.LoadRates(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved == nil || !saved[core.EUR].Equal(decimal.RequireFromString("0.92")) {
		t.Fatalf("expected persisted snapshot, got %v", saved)
	}
}

func TestHTTPFeedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"base": "USD",
			"rates": map[string]float64{
				"EUR": 0.92,
				"KES": 130,
				"XXX": 0, // non-positive rates are dropped
			},
		})
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL, time.Second)
	table, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !table[core.USD].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected implicit reference rate, got %v", table[core.USD])
	}
	if !table[core.KES].Equal(decimal.NewFromInt(130)) {
		t.Fatalf("unexpected KES rate: %v", table[core.KES])
	}
	if _, ok := table["XXX"]; ok {
		t.Fatal("zero rate should be dropped")
	}
}

func TestHTTPFeedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	feed := NewHTTPFeed(srv.URL, time.Second)
	if _, err := feed.Fetch(context.Background()); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}
