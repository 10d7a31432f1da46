// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger は依存先の疎通確認です。*sql.DB がそのまま満たします。
type Pinger interface {
	PingContext(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Health は /healthz を処理するハンドラーを返します。
// db が nil でなければ疎通を確認し、失敗時は 503 を返します。キャッシュは常に防止します。
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		status, body := http.StatusOK, gin.H{"status": "ok"}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				slog.Warn("health check: database unreachable", "error", err)
				status, body = http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"}
			}
		}

		if c.Request.Method == http.MethodHead {
			c.Status(status)
			return
		}
		c.JSON(status, body)
	}
}
