// Command rates-refresh fetches the current exchange rates once and
// persists the snapshot, for cron-driven refreshes alongside the server.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"tutorledger/internal/cli"
	"tutorledger/internal/core"
	"tutorledger/internal/rates"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	feed := rates.NewHTTPFeed(cfg.RateFeedURL, cfg.RateFeedTimeout)
	table, err := feed.Fetch(ctx)
	if err != nil {
		logger.Error("Rate fetch failed", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	if err := repo.SaveRates(ctx, table, now); err != nil {
		logger.Error("Failed to persist rate snapshot", "error", err)
		os.Exit(1)
	}

	codes := make([]string, 0, len(table))
	for c := range table {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Printf("%s\t%s\n", c, table[core.Currency(c)].String())
	}
	logger.Info("Saved rate snapshot", "currencies", len(table), "fetched_at", now.Format(time.RFC3339))
}
