package router

import (
	"github.com/gin-gonic/gin"

	pricehandler "commodity_etl/internal/feature/commodities/transport/handler"
	"commodity_etl/internal/platform/http/handler"
	"commodity_etl/internal/platform/metrics"
)

func NewRouter(db handler.Pinger, prices *pricehandler.PriceHandler, m *metrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// 導通確認用
	health := handler.Health(db)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	// 読み取り専用。書き込みは取り込みバッチのみ
	r.GET("/commodities", prices.List)

	return r
}
