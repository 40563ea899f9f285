package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tutorledger/internal/amqp"
	"tutorledger/internal/calendar"
	gcal "tutorledger/internal/calendar/google"
	"tutorledger/internal/cli"
	apphttp "tutorledger/internal/http"
	"tutorledger/internal/ledger"
	"tutorledger/internal/rates"
	"tutorledger/internal/store"
	"tutorledger/internal/store/memory"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		st = repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		st = memory.New()
		logger.Info("Initialized memory backend")
	}

	feed := rates.NewHTTPFeed(cfg.RateFeedURL, cfg.RateFeedTimeout)
	rateCache := rates.NewCache(feed, st, rates.WithTTL(cfg.RateTTL))
	if err := rateCache.Warm(ctx); err != nil {
		logger.Warn("Failed to load rate snapshot", "error", err)
	}

	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		// The broker often comes up alongside the app; retry briefly
		// before giving up and running without events.
		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		client, err := amqp.NewClientWithRetry(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		cancel()
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange)
		}
	}

	var events calendar.EventSource
	if cfg.GoogleCalendarID != "" {
		client, err := gcal.NewFromEnv(ctx)
		if err != nil {
			logger.Warn("Calendar unavailable, continuing without suggestions", "error", err)
		} else {
			events = client
			logger.Info("Connected to Google Calendar", "calendar", cfg.GoogleCalendarID)
		}
	}

	svc := ledger.NewService(st, rateCache, publisher)
	if err := svc.Load(ctx); err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, events, rateCache, cfg.Display())
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rateCache.Run(gctx, cfg.RateRefresh); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting tutorledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
