package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"durance/internal/config"
	"durance/internal/db"
	"durance/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.BootstrapSchema {
		if err := db.Bootstrap(ctx, pool); err != nil {
			logger.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}
	}

	svc := game.NewService(pool, logger)

	jobs := []struct {
		name  string
		every time.Duration
		run   func(context.Context) error
	}{
		{"income", cfg.IncomeEvery, func(ctx context.Context) error {
			_, err := svc.GenerateHourlyIncome(ctx)
			return err
		}},
		{"reprice", cfg.RepriceEvery, func(ctx context.Context) error {
			_, err := svc.RecomputeDynamicPrices(ctx)
			return err
		}},
		{"fluctuate", cfg.FluctuateEvery, func(ctx context.Context) error {
			_, err := svc.SimulateMarketFluctuation(ctx)
			return err
		}},
		{"stats", cfg.StatsEvery, svc.SnapshotDailyStats},
		{"cleanup", cfg.CleanupEvery, func(ctx context.Context) error {
			_, err := svc.CleanupRetention(ctx)
			return err
		}},
	}

	if cfg.RunOnce {
		for _, j := range jobs {
			if err := j.run(ctx); err != nil {
				logger.Error("job failed", "job", j.name, "err", err)
				os.Exit(1)
			}
			logger.Info("job complete", "job", j.name)
		}
		logger.Info("worker run-once completed")
		return
	}

	for _, j := range jobs {
		go func() {
			ticker := time.NewTicker(j.every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := j.run(ctx); err != nil {
						logger.Error("job failed", "job", j.name, "err", err)
						continue
					}
					logger.Info("job complete", "job", j.name)
				}
			}
		}()
		logger.Info("job scheduled", "job", j.name, "every", j.every.String())
	}

	<-ctx.Done()
	logger.Info("worker shutdown")
}
