// Package config loads the pipeline and server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

// Config is the run configuration shared by cmd/ingest and cmd/server.
type Config struct {
	Symbols          []entity.Symbol
	Window           entity.LookbackWindow
	Table            string
	Strategy         entity.ReplaceStrategy
	FetchConcurrency int
	FetchRateLimit   int // requests per minute; 0 disables the limiter
	RunTimeout       time.Duration
	ArchiveDir       string
	HTTPAddr         string
	CacheRefreshHour int
	CacheLocation    *time.Location
}

// Target is the load destination described by the configuration.
func (c Config) Target() entity.LoadTarget {
	return entity.NewReplaceTarget(c.Table, c.Strategy)
}

// Load reads every setting, applying defaults for unset variables.
// All problems are reported together.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		Symbols:    entity.ParseSymbols(getenv("COMMODITY_SYMBOLS", "CL=F,GC=F,SI=F")),
		Table:      getenv("TARGET_TABLE", "commodities_data"),
		ArchiveDir: os.Getenv("ARCHIVE_DIR"),
		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
	}

	period, err := entity.ParsePeriod(getenv("LOOKBACK_PERIOD", "5d"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOOKBACK_PERIOD: %w", err))
	}
	cfg.Window = entity.LookbackWindow{
		Period:   period,
		Interval: entity.Interval(getenv("LOOKBACK_INTERVAL", string(entity.IntervalDaily))),
	}

	if cfg.Strategy, err = entity.ParseReplaceStrategy(os.Getenv("REPLACE_STRATEGY")); err != nil {
		errs = append(errs, fmt.Errorf("REPLACE_STRATEGY: %w", err))
	}
	if cfg.FetchConcurrency, err = atoi("FETCH_CONCURRENCY", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.FetchRateLimit, err = atoi("FETCH_RATE_LIMIT", 60); err != nil {
		errs = append(errs, err)
	}
	if cfg.CacheRefreshHour, err = atoi("CACHE_REFRESH_HOUR", 18); err != nil {
		errs = append(errs, err)
	}
	if cfg.RunTimeout, err = time.ParseDuration(getenv("RUN_TIMEOUT", "5m")); err != nil {
		errs = append(errs, fmt.Errorf("RUN_TIMEOUT: %w", err))
	}
	if cfg.CacheLocation, err = time.LoadLocation(getenv("CACHE_TIMEZONE", "America/New_York")); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_TIMEZONE: %w", err))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and reports every violation.
func (c Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("COMMODITY_SYMBOLS: at least one symbol is required"))
	}
	if err := c.Window.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Target().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.FetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY: must be >= 1, got %d", c.FetchConcurrency))
	}
	if c.FetchRateLimit < 0 {
		errs = append(errs, fmt.Errorf("FETCH_RATE_LIMIT: must be >= 0, got %d", c.FetchRateLimit))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RUN_TIMEOUT: must be positive, got %s", c.RunTimeout))
	}
	if c.CacheRefreshHour < 0 || c.CacheRefreshHour > 23 {
		errs = append(errs, fmt.Errorf("CACHE_REFRESH_HOUR: must be 0-23, got %d", c.CacheRefreshHour))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoi(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}
