package adapters

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: は接続ごとに別DBになるため1本に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func day(i int) time.Time {
	return time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func observations(symbol entity.Symbol, n int, base float64) []entity.Observation {
	out := make([]entity.Observation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entity.Observation{
			Date:   day(i),
			Symbol: symbol,
			Close:  decimal.NewFromFloat(base + float64(i)),
		})
	}
	return out
}

// seedRows writes rows directly, bypassing ReplaceAll.
func seedRows(t *testing.T, db *gorm.DB, table string, rows []entity.Observation) {
	t.Helper()

	require.NoError(t, db.Table(table).Migrator().CreateTable(&ObservationModel{}))
	if len(rows) == 0 {
		return
	}
	ms := make([]ObservationModel, 0, len(rows))
	for _, r := range rows {
		ms = append(ms, toModel(r))
	}
	require.NoError(t, db.Table(table).Create(&ms).Error, "failed to seed rows")
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestNewObservationRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewObservationRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestObservationGorm_ReplaceAll(t *testing.T) {
	t.Parallel()

	fresh := append(observations("CL=F", 5, 70), observations("GC=F", 5, 2000)...)

	tests := []struct {
		name      string
		strategy  entity.ReplaceStrategy
		setupFunc func(t *testing.T, db *gorm.DB)
		rows      []entity.Observation
		wantRows  int64
	}{
		{
			name:     "success: truncate creates a missing table",
			strategy: entity.StrategyTruncate,
			rows:     fresh,
			wantRows: 10,
		},
		{
			name:     "success: truncate drops previous rows",
			strategy: entity.StrategyTruncate,
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedRows(t, db, "commodities_data", observations("HG=F", 30, 4))
			},
			rows:     fresh,
			wantRows: 10,
		},
		{
			name:     "success: recreate creates a missing table",
			strategy: entity.StrategyRecreate,
			rows:     fresh,
			wantRows: 10,
		},
		{
			name:     "success: recreate drops previous rows",
			strategy: entity.StrategyRecreate,
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedRows(t, db, "commodities_data", observations("HG=F", 30, 4))
			},
			rows:     fresh,
			wantRows: 10,
		},
		{
			name:     "success: empty input leaves an empty table",
			strategy: entity.StrategyTruncate,
			setupFunc: func(t *testing.T, db *gorm.DB) {
				seedRows(t, db, "commodities_data", observations("HG=F", 3, 4))
			},
			rows:     nil,
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			if tt.setupFunc != nil {
				tt.setupFunc(t, db)
			}
			repo := NewObservationRepository(db)

			n, err := repo.ReplaceAll(context.Background(), entity.NewReplaceTarget("commodities_data", tt.strategy), tt.rows)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRows, n)
			assert.Equal(t, tt.wantRows, countRows(t, db, "commodities_data"))

			got, err := repo.Find(context.Background(), "commodities_data", "")
			require.NoError(t, err)
			for _, o := range got {
				assert.NotEqual(t, entity.Symbol("HG=F"), o.Symbol, "stale row survived")
			}
		})
	}
}

func TestObservationGorm_ReplaceAll_Idempotent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewObservationRepository(db)
	target := entity.NewReplaceTarget("commodities_data", entity.StrategyTruncate)
	rows := append(observations("CL=F", 5, 70.25), observations("SI=F", 5, 23.5)...)

	_, err := repo.ReplaceAll(context.Background(), target, rows)
	require.NoError(t, err)
	first, err := repo.Find(context.Background(), "commodities_data", "")
	require.NoError(t, err)

	_, err = repo.ReplaceAll(context.Background(), target, rows)
	require.NoError(t, err)
	second, err := repo.Find(context.Background(), "commodities_data", "")
	require.NoError(t, err)

	require.Len(t, second, 10)
	require.Len(t, first, len(second))
	for i := range first {
		assert.Equal(t, first[i].Symbol, second[i].Symbol)
		assert.True(t, first[i].Date.Equal(second[i].Date))
		assert.True(t, first[i].Close.Equal(second[i].Close))
	}
}

func TestObservationGorm_ReplaceAll_RollbackKeepsPriorRows(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	// 互換性のないスキーマ: close 列がないため INSERT が失敗する
	require.NoError(t, db.Exec(`CREATE TABLE "commodities_data" ("date" date, "price" numeric, "symbol" text)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO "commodities_data" ("date", "price", "symbol") VALUES ('2024-01-02', 1.5, 'CL=F'), ('2024-01-03', 1.6, 'CL=F')`).Error)

	repo := NewObservationRepository(db)
	_, err := repo.ReplaceAll(context.Background(),
		entity.NewReplaceTarget("commodities_data", entity.StrategyTruncate),
		observations("GC=F", 3, 2000))

	require.Error(t, err)
	assert.Equal(t, int64(2), countRows(t, db, "commodities_data"), "delete must be rolled back")
}

func TestDropTable_WithoutCascade(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return dropTable(tx, "commodities_data")
	})

	assert.Equal(t, "DROP TABLE IF EXISTS `commodities_data`", sql)
	assert.NotContains(t, strings.ToUpper(sql), "CASCADE", "dependent objects must not be dropped silently")
}

func TestObservationGorm_ReplaceAll_RecreateKeepsDependentView(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seedRows(t, db, "commodities_data", observations("CL=F", 2, 70))
	require.NoError(t, db.Exec(`CREATE VIEW "latest_closes" AS SELECT "symbol", "close" FROM "commodities_data"`).Error)

	repo := NewObservationRepository(db)
	_, err := repo.ReplaceAll(context.Background(),
		entity.NewReplaceTarget("commodities_data", entity.StrategyRecreate),
		observations("GC=F", 3, 2000))
	require.NoError(t, err)

	var views int64
	require.NoError(t, db.Raw(`SELECT count(*) FROM sqlite_master WHERE type = 'view' AND name = 'latest_closes'`).Scan(&views).Error)
	assert.Equal(t, int64(1), views, "view survives recreate")

	var symbols []string
	require.NoError(t, db.Table("latest_closes").Pluck("symbol", &symbols).Error)
	assert.Equal(t, []string{"GC=F", "GC=F", "GC=F"}, symbols, "view reads the new rows")
}

func TestObservationGorm_ReplaceAll_InvalidTarget(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewObservationRepository(db)

	_, err := repo.ReplaceAll(context.Background(),
		entity.NewReplaceTarget("drop table; --", entity.StrategyTruncate),
		observations("CL=F", 1, 70))

	assert.ErrorIs(t, err, entity.ErrInvalidTarget)
}

func TestObservationGorm_ReplaceAll_CustomTable(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewObservationRepository(db)

	n, err := repo.ReplaceAll(context.Background(),
		entity.NewReplaceTarget("metals_closing", entity.StrategyRecreate),
		observations("GC=F", 4, 2000))
	require.NoError(t, err)

	assert.Equal(t, int64(4), n)
	assert.True(t, db.Migrator().HasTable("metals_closing"))
	assert.False(t, db.Migrator().HasTable("commodities_data"), "default table is untouched")
}

func TestObservationGorm_Find(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	// 挿入順をわざと崩しておく
	rows := []entity.Observation{
		{Date: day(2), Symbol: "GC=F", Close: decimal.RequireFromString("2010.5")},
		{Date: day(1), Symbol: "CL=F", Close: decimal.RequireFromString("71.25")},
		{Date: day(0), Symbol: "GC=F", Close: decimal.RequireFromString("2001")},
		{Date: day(0), Symbol: "CL=F", Close: decimal.RequireFromString("70.5")},
	}
	seedRows(t, db, "commodities_data", rows)
	repo := NewObservationRepository(db)

	t.Run("all symbols ordered by symbol then date", func(t *testing.T) {
		got, err := repo.Find(context.Background(), "commodities_data", "")
		require.NoError(t, err)
		require.Len(t, got, 4)

		assert.Equal(t, entity.Symbol("CL=F"), got[0].Symbol)
		assert.True(t, got[0].Date.Equal(day(0)))
		assert.Equal(t, entity.Symbol("CL=F"), got[1].Symbol)
		assert.True(t, got[1].Date.Equal(day(1)))
		assert.Equal(t, entity.Symbol("GC=F"), got[2].Symbol)
		assert.Equal(t, entity.Symbol("GC=F"), got[3].Symbol)
		assert.True(t, got[3].Close.Equal(decimal.RequireFromString("2010.5")))
	})

	t.Run("filter by symbol", func(t *testing.T) {
		got, err := repo.Find(context.Background(), "commodities_data", "CL=F")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, o := range got {
			assert.Equal(t, entity.Symbol("CL=F"), o.Symbol)
		}
		assert.True(t, got[0].Close.Equal(decimal.RequireFromString("70.5")))
	})

	t.Run("unknown symbol yields no rows", func(t *testing.T) {
		got, err := repo.Find(context.Background(), "commodities_data", "ZZ=F")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing table is an error", func(t *testing.T) {
		_, err := repo.Find(context.Background(), "nope", "")
		assert.Error(t, err)
	})
}
