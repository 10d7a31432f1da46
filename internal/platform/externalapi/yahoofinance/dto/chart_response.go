package dto

import "github.com/shopspring/decimal"

// ChartResponse はYahoo Finance chart API (/v8/finance/chart/{symbol}) のレスポンスです。
type ChartResponse struct {
	Chart Chart `json:"chart"`
}

type Chart struct {
	Result []ChartResult `json:"result"`
	Error  *ChartError   `json:"error"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartResult struct {
	Meta       Meta       `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators Indicators `json:"indicators"`
}

type Meta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	GMTOffset            int    `json:"gmtoffset"`
}

type Indicators struct {
	Quote []Quote `json:"quote"`
}

// Quote holds the OHLC arrays; only Close is consumed. Missing bars are JSON null.
type Quote struct {
	Close []decimal.NullDecimal `json:"close"`
}
