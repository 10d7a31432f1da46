// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"commodity_etl/internal/app/config"
	"commodity_etl/internal/feature/commodities/adapters"
	"commodity_etl/internal/feature/commodities/usecase"
	"commodity_etl/internal/platform/archive"
	"commodity_etl/internal/platform/cache"
	"commodity_etl/internal/platform/externalapi/yahoofinance"
	infrahttp "commodity_etl/internal/platform/http"
	"commodity_etl/internal/shared/ratelimiter"
)

// NewSource creates a fully configured Yahoo Finance chart client with HTTP client.
func NewSource() *yahoofinance.ChartSource {
	cfg := yahoofinance.LoadConfig()
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout, cfg.UserAgent)
	return yahoofinance.NewChartSource(cfg, httpClient)
}

// NewObservationStore returns the gorm repository, wrapped with the Redis cache when rdb is non-nil.
// Cached reads expire at the configured daily refresh hour.
func NewObservationStore(db *gorm.DB, rdb *redis.Client, cfg config.Config) cache.ObservationStore {
	repo := adapters.NewObservationRepository(db)
	if rdb == nil {
		return repo
	}
	ttl := func() time.Duration { return cache.TimeUntilNextHour(cfg.CacheRefreshHour, cfg.CacheLocation) }
	return cache.NewCachingObservationRepository(rdb, ttl, repo, "commodities")
}

// NewPipeline wires Extract, Load and the optional Parquet archive.
func NewPipeline(cfg config.Config, source usecase.SourceAdapter, repo usecase.ObservationRepository) *usecase.PipelineUsecase {
	var rl ratelimiter.RateLimiterInterface = ratelimiter.Noop{}
	if cfg.FetchRateLimit > 0 {
		rl = ratelimiter.NewRateLimiter(cfg.FetchRateLimit, time.Minute)
	}

	var archiver usecase.Archiver
	if cfg.ArchiveDir != "" {
		archiver = archive.NewParquetArchiver(cfg.ArchiveDir)
	}

	return usecase.NewPipelineUsecase(
		usecase.NewExtractUsecase(source, rl, cfg.FetchConcurrency),
		usecase.NewLoadUsecase(repo),
		archiver,
	)
}

// NewRunRequest builds the single run described by cfg.
func NewRunRequest(cfg config.Config) usecase.RunRequest {
	return usecase.RunRequest{
		Symbols: cfg.Symbols,
		Window:  cfg.Window,
		Target:  cfg.Target(),
	}
}
