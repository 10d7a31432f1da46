// Command ingest fetches the configured commodity closing prices and replaces the destination table.
//
// Exit status: 0 replaced, 3 nothing fetched (table untouched), 1 failed.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"commodity_etl/internal/app/config"
	"commodity_etl/internal/app/di"
	"commodity_etl/internal/feature/commodities/usecase"
	infradb "commodity_etl/internal/platform/db"
	infraredis "commodity_etl/internal/platform/redis"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("invalid configuration: %v", err)
		return usecase.OutcomeFailed.ExitCode()
	}

	// db
	db, err := infradb.OpenDB(cfg.Table)
	if err != nil {
		log.Printf("database unavailable: %v", err)
		return usecase.OutcomeFailed.ExitCode()
	}
	defer func() {
		if err := infradb.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	// Redis: 読み取りAPIのキャッシュを置換後に無効化するため
	var rdb *redisv9.Client
	if rcfg := infraredis.LoadConfig(); rcfg.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, rcfg); err != nil {
			slog.Warn("Redis unavailable. Cached reads expire by TTL only.")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	store := di.NewObservationStore(db, rdb, cfg)
	pipeline := di.NewPipeline(cfg, di.NewSource(), store)

	slog.Info("ingest started", "symbols", cfg.Symbols, "window", cfg.Window.String(), "table", cfg.Table, "strategy", cfg.Strategy)

	report, err := pipeline.Run(ctx, di.NewRunRequest(cfg))
	failed := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failed = append(failed, string(f.Symbol))
	}
	attrs := []any{
		"outcome", report.Outcome.String(),
		"table", report.Table,
		"rows", report.Rows,
		"loaded", report.Loaded,
		"failed", failed,
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	}
	switch report.Outcome {
	case usecase.OutcomeReplaced:
		slog.Info("ingest finished", attrs...)
	case usecase.OutcomeNoop:
		slog.Warn("ingest finished without data; table left unchanged", attrs...)
	default:
		slog.Error("ingest failed", append(attrs, "error", err)...)
	}
	return report.Outcome.ExitCode()
}
