package dto

import "encoding/json"

// PriceResponse は終値1行分のレスポンスDTOです。
type PriceResponse struct {
	Date   string      `json:"date"`   // 取引日 (YYYY-MM-DD)
	Close  json.Number `json:"close"`  // 終値（10進表現をそのまま出力）
	Symbol string      `json:"symbol"` // 銘柄コード
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}
