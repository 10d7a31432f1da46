package db

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"commodity_etl/internal/feature/commodities/adapters"
)

// retryInterval は接続リトライの待機時間です。
const retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	User          string
	Password      string
	Name          string
	Host          string
	Port          string
	Schema        string // 空なら search_path を指定しない
	SSLMode       string
	InstanceName  string // Cloud SQL の接続名。設定時は Unix ソケット経由で接続
	RunMigrations bool
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		Host:          os.Getenv("DB_HOST"),
		Port:          os.Getenv("DB_PORT"),
		Schema:        os.Getenv("DB_SCHEMA"),
		SSLMode:       os.Getenv("DB_SSLMODE"),
		InstanceName:  os.Getenv("INSTANCE_CONNECTION_NAME"),
		RunMigrations: os.Getenv("RUN_MIGRATIONS") == "true",
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg
}

// BuildDSN は keyword/value 形式の PostgreSQL 接続文字列を生成します。
// InstanceName が設定されている場合は Host/Port より優先されます。
func BuildDSN(cfg Config) string {
	parts := make([]string, 0, 7)
	if cfg.InstanceName != "" {
		parts = append(parts, kv("host", "/cloudsql/"+cfg.InstanceName))
	} else {
		parts = append(parts, kv("host", cfg.Host), kv("port", cfg.Port))
	}
	parts = append(parts,
		kv("user", cfg.User),
		kv("password", cfg.Password),
		kv("dbname", cfg.Name),
		kv("sslmode", cfg.SSLMode),
	)
	if cfg.Schema != "" {
		parts = append(parts, kv("search_path", cfg.Schema))
	}
	return strings.Join(parts, " ")
}

// kv quotes values that libpq would otherwise split or misread.
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	v := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + v + "'"
}

// OpenPostgres は pgx で DSN を解釈し、database/sql 経由で gorm に渡します。
func OpenPostgres(dsn string) (*gorm.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	sqlDB := stdlib.OpenDB(*connCfg)
	// バッチ処理なので接続数は少なくてよい
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ConnectWithRetry は timeout に達するまで opener を retryInterval 間隔で呼び出します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// OpenDB は環境変数の設定で接続し、RUN_MIGRATIONS=true なら table を作成・更新します。
func OpenDB(table string) (*gorm.DB, error) {
	cfg := LoadConfigFromEnv()

	db, err := ConnectWithRetry(BuildDSN(cfg), 60*time.Second, OpenPostgres)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Table(table).AutoMigrate(&adapters.ObservationModel{}); err != nil {
			_ = Close(db)
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	slog.Info("database connected", "host", cfg.Host, "instance", cfg.InstanceName, "database", cfg.Name)
	return db, nil
}

// Close は基盤の *sql.DB を閉じます。
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
