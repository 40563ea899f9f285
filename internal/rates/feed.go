package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tutorledger/internal/core"
)

// ErrFeedUnavailable wraps any transport or decode failure talking to the
// upstream rate provider, so callers can branch on "feed down" without
// caring which layer broke.
var ErrFeedUnavailable = errors.New("rate feed unavailable")

// Feed fetches a fresh reference-currency rate table.
type Feed interface {
	Fetch(ctx context.Context) (core.RateTable, error)
}

// HTTPFeed reads rates from a JSON endpoint shaped like
// {"base":"USD","rates":{"EUR":0.92,"KES":130}}.
type HTTPFeed struct {
	url    string
	client *http.Client
}

type feedDocument struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func NewHTTPFeed(url string, timeout time.Duration) *HTTPFeed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFeed{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFeed) Fetch(ctx context.Context) (core.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrFeedUnavailable, err)
	}
	if doc.Base != "" && core.Currency(doc.Base) != core.Reference {
		return nil, fmt.Errorf("%w: unexpected base currency %q", ErrFeedUnavailable, doc.Base)
	}

	table := core.RateTable{core.Reference: decimal.NewFromInt(1)}
	for code, rate := range doc.Rates {
		if !rate.IsPositive() {
			continue
		}
		table[core.Currency(code)] = rate
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("%w: empty rate document", ErrFeedUnavailable)
	}
	return table, nil
}
