// Command server exposes the loaded closing prices over a read-only HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"commodity_etl/internal/app/config"
	"commodity_etl/internal/app/di"
	"commodity_etl/internal/app/router"
	"commodity_etl/internal/feature/commodities/transport/handler"
	"commodity_etl/internal/feature/commodities/usecase"
	infradb "commodity_etl/internal/platform/db"
	"commodity_etl/internal/platform/metrics"
	infraredis "commodity_etl/internal/platform/redis"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// db
	db, err := infradb.OpenDB(cfg.Table)
	if err != nil {
		log.Fatalf("database unavailable: %v", err)
	}
	defer func() {
		if err := infradb.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("database handle: %v", err)
	}

	// Redis
	var rdb *redisv9.Client
	if rcfg := infraredis.LoadConfig(); rcfg.Enabled() {
		if tmp, err := infraredis.NewRedisClient(context.Background(), rcfg); err != nil {
			slog.Warn("Redis unavailable. Running without cache.")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	// Repository → Usecase → Handler
	store := di.NewObservationStore(db, rdb, cfg)
	pricesUC := usecase.NewPricesUsecase(store, cfg.Table)
	priceH := handler.NewPriceHandler(pricesUC)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(sqlDB, priceH, metrics.NewHTTPMetrics()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("server listening", "addr", cfg.HTTPAddr, "table", cfg.Table)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
