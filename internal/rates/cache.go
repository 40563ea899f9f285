package rates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tutorledger/internal/core"
	"tutorledger/internal/store"
)

// DefaultTTL is how long a fetched rate table stays fresh.
const DefaultTTL = 24 * time.Hour

// Cache serves the current rate table, refreshing from the feed at most
// once per TTL. A failed refresh keeps serving the stale table; on a cold
// start it falls back to the last persisted snapshot, and if there is
// none, to an empty table so reads never block on the network.
type Cache struct {
	feed  Feed
	store store.RateStore
	ttl   time.Duration
	clock func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	table     core.RateTable
	fetchedAt time.Time
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.clock = now }
}

func NewCache(feed Feed, snapshots store.RateStore, opts ...CacheOption) *Cache {
	c := &Cache{
		feed:  feed,
		store: snapshots,
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Warm loads the persisted snapshot so the first request after a restart
// has rates even when the feed is down. Missing snapshot is not an error.
func (c *Cache) Warm(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	table, fetchedAt, err := c.store.LoadRates(ctx)
	if err != nil {
		return err
	}
	if table == nil {
		return nil
	}
	c.mu.Lock()
	c.table = table
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
	slog.InfoContext(ctx, "loaded rate snapshot",
		"currencies", len(table), "fetched_at", fetchedAt)
	return nil
}

// Rates returns the current table, refreshing it first when stale.
// The returned table may be empty on a cold start with the feed down;
// converters treat missing rates explicitly, so an empty table degrades
// to zero-contribution conversions rather than an error.
func (c *Cache) Rates(ctx context.Context) core.RateTable {
	c.mu.RLock()
	table, fetchedAt := c.table, c.fetchedAt
	c.mu.RUnlock()

	if table != nil && c.clock().Sub(fetchedAt) < c.ttl {
		return table
	}
	if fresh, ok := c.refresh(ctx); ok {
		return fresh
	}
	if table != nil {
		slog.WarnContext(ctx, "rate refresh failed, serving stale table",
			"age", c.clock().Sub(fetchedAt).Round(time.Second))
		return table
	}
	return core.RateTable{}
}

// FetchedAt reports when the current table was obtained from the feed.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// refresh fetches from the feed, deduplicating concurrent callers.
func (c *Cache) refresh(ctx context.Context) (core.RateTable, bool) {
	v, err, _ := c.group.Do("rates", func() (any, error) {
		table, err := c.feed.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		now := c.clock()
		c.mu.Lock()
		c.table = table
		c.fetchedAt = now
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.SaveRates(ctx, table, now); err != nil {
				slog.WarnContext(ctx, "persist rate snapshot failed", "error", err)
			}
		}
		slog.InfoContext(ctx, "refreshed rates", "currencies", len(table))
		return table, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(core.RateTable), true
}

// Run refreshes the table in the background until ctx is cancelled, so
// request paths rarely pay for a synchronous fetch.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.ttl / 2
	}
	c.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}
