package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

var envKeys = []string{
	"COMMODITY_SYMBOLS", "LOOKBACK_PERIOD", "LOOKBACK_INTERVAL", "TARGET_TABLE",
	"REPLACE_STRATEGY", "FETCH_CONCURRENCY", "FETCH_RATE_LIMIT", "RUN_TIMEOUT",
	"ARCHIVE_DIR", "HTTP_ADDR", "CACHE_REFRESH_HOUR", "CACHE_TIMEZONE",
}

// clearEnv は既存の環境変数の影響を受けないよう全キーを空にします。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []entity.Symbol{"CL=F", "GC=F", "SI=F"}, cfg.Symbols)
	assert.Equal(t, entity.DefaultWindow(), cfg.Window)
	assert.Equal(t, "commodities_data", cfg.Table)
	assert.Equal(t, entity.StrategyTruncate, cfg.Strategy)
	assert.Equal(t, 1, cfg.FetchConcurrency)
	assert.Equal(t, 60, cfg.FetchRateLimit)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Empty(t, cfg.ArchiveDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 18, cfg.CacheRefreshHour)
	assert.Equal(t, "America/New_York", cfg.CacheLocation.String())
	assert.Equal(t, entity.NewReplaceTarget("commodities_data", entity.StrategyTruncate), cfg.Target())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMMODITY_SYMBOLS", " HG=F, NG=F ,HG=F")
	t.Setenv("LOOKBACK_PERIOD", "1mo")
	t.Setenv("TARGET_TABLE", "market.closing_prices")
	t.Setenv("REPLACE_STRATEGY", "RECREATE")
	t.Setenv("FETCH_CONCURRENCY", "4")
	t.Setenv("FETCH_RATE_LIMIT", "0")
	t.Setenv("RUN_TIMEOUT", "90s")
	t.Setenv("CACHE_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []entity.Symbol{"HG=F", "NG=F"}, cfg.Symbols)
	assert.Equal(t, entity.Period{N: 1, Unit: entity.UnitMonth}, cfg.Window.Period)
	assert.Equal(t, "market.closing_prices", cfg.Table)
	assert.Equal(t, entity.StrategyRecreate, cfg.Strategy)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, 0, cfg.FetchRateLimit)
	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, time.UTC, cfg.CacheLocation)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKBACK_PERIOD", "five days")
	t.Setenv("REPLACE_STRATEGY", "append")
	t.Setenv("FETCH_CONCURRENCY", "many")
	t.Setenv("RUN_TIMEOUT", "soon")
	t.Setenv("CACHE_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	require.Error(t, err)

	for _, key := range []string{"LOOKBACK_PERIOD", "REPLACE_STRATEGY", "FETCH_CONCURRENCY", "RUN_TIMEOUT", "CACHE_TIMEZONE"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.ErrorIs(t, err, entity.ErrInvalidWindow)
	assert.ErrorIs(t, err, entity.ErrInvalidTarget)
}

func TestLoad_FromDotEnv(t *testing.T) {
	clearEnv(t)
	for _, k := range envKeys {
		// godotenv.Load は既存の変数を上書きしないので未設定に戻す
		require.NoError(t, os.Unsetenv(k))
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMMODITY_SYMBOLS=PL=F\nTARGET_TABLE=metals\n"), 0o600))
	require.NoError(t, godotenv.Load(path))
	t.Cleanup(func() {
		_ = os.Unsetenv("COMMODITY_SYMBOLS")
		_ = os.Unsetenv("TARGET_TABLE")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []entity.Symbol{"PL=F"}, cfg.Symbols)
	assert.Equal(t, "metals", cfg.Table)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Symbols:          []entity.Symbol{"CL=F"},
		Window:           entity.DefaultWindow(),
		Table:            "commodities_data",
		Strategy:         entity.StrategyTruncate,
		FetchConcurrency: 1,
		FetchRateLimit:   60,
		RunTimeout:       time.Minute,
		CacheRefreshHour: 18,
	}

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no symbols", mutate: func(c *Config) { c.Symbols = nil }, wantErr: "COMMODITY_SYMBOLS"},
		{name: "bad table", mutate: func(c *Config) { c.Table = "commodities data" }, wantErr: "commodities data"},
		{name: "zero concurrency", mutate: func(c *Config) { c.FetchConcurrency = 0 }, wantErr: "FETCH_CONCURRENCY"},
		{name: "negative rate limit", mutate: func(c *Config) { c.FetchRateLimit = -1 }, wantErr: "FETCH_RATE_LIMIT"},
		{name: "zero timeout", mutate: func(c *Config) { c.RunTimeout = 0 }, wantErr: "RUN_TIMEOUT"},
		{name: "hour out of range", mutate: func(c *Config) { c.CacheRefreshHour = 24 }, wantErr: "CACHE_REFRESH_HOUR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := valid
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
