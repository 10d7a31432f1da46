// Package handler はcommoditiesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/feature/commodities/transport/http/dto"
)

// maxSymbolLen は格納列の長さに合わせています。
const maxSymbolLen = 32

// PricesUsecase はロード済み終値の参照ユースケースです（利用者側で定義）。
type PricesUsecase interface {
	GetPrices(ctx context.Context, symbol entity.Symbol) ([]entity.Observation, error)
}

// PriceHandler は終値参照のHTTPリクエストを処理します。
type PriceHandler struct {
	uc PricesUsecase
}

func NewPriceHandler(uc PricesUsecase) *PriceHandler {
	return &PriceHandler{uc: uc}
}

// List はロード済みの終値を返します。
//
// エンドポイント例:
// GET /commodities?symbol=CL=F
func (h *PriceHandler) List(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if len(symbol) > maxSymbolLen {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "symbol is too long"})
		return
	}

	rows, err := h.uc.GetPrices(c.Request.Context(), entity.Symbol(symbol))
	if err != nil {
		slog.Error("failed to read prices", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read prices"})
		return
	}

	out := make([]dto.PriceResponse, 0, len(rows))
	for _, o := range rows {
		out = append(out, dto.PriceResponse{
			Date:   o.Date.Format(entity.DateLayout),
			Close:  json.Number(o.Close.String()),
			Symbol: string(o.Symbol),
		})
	}
	c.JSON(http.StatusOK, out)
}
