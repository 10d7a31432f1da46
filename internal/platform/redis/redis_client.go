package redis

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config はRedis接続設定です。Host が空ならキャッシュは無効です。
type Config struct {
	Host     string
	Port     string
	Password string
}

// LoadConfig は環境変数からRedis接続設定を読み込みます。
func LoadConfig() Config {
	cfg := Config{
		Host:     os.Getenv("REDIS_HOST"),
		Port:     os.Getenv("REDIS_PORT"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if cfg.Port == "" {
		cfg.Port = "6379"
	}
	return cfg
}

// Enabled reports whether a Redis host is configured.
func (c Config) Enabled() bool { return c.Host != "" }

// Addr は host:port 形式のアドレスです。
func (c Config) Addr() string { return c.Host + ":" + c.Port }

// NewRedisClient は接続を確認したうえでクライアントを返します。
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          0,
		DialTimeout: 3 * time.Second,
	})

	// 接続確認
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", cfg.Addr(), "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", cfg.Addr())
	return rdb, nil
}
