package yahoofinance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"commodity_etl/internal/feature/commodities/domain"
	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/feature/commodities/usecase"
	"commodity_etl/internal/platform/externalapi/yahoofinance/dto"
)

// ChartSource はYahoo Finance chart APIから終値を取得するSourceAdapter実装です。
type ChartSource struct {
	cfg    Config
	client *http.Client
}

// ChartSourceがSourceAdapterを実装していることをコンパイル時に検証します。
var _ usecase.SourceAdapter = (*ChartSource)(nil)

// NewChartSource は指定された設定とHTTPクライアントでChartSourceを生成します。
func NewChartSource(cfg Config, client *http.Client) *ChartSource {
	return &ChartSource{cfg: cfg, client: client}
}

// Fetch は1銘柄分の日次終値を取得し、日付昇順のObservationとして返します。
// 失敗はすべて *domain.FetchFailedError になります。リトライはしません。
func (s *ChartSource) Fetch(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) ([]entity.Observation, error) {
	if err := window.Validate(); err != nil {
		return nil, domain.NewFetchFailed(symbol, err)
	}

	q := url.Values{}
	q.Set("range", window.Period.String())
	q.Set("interval", string(window.Interval))

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", s.cfg.BaseURL, url.PathEscape(string(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.NewFetchFailed(symbol, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchFailed(symbol, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	// 404 でもエラー本文が返るので先にデコードを試みる
	var body dto.ChartResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&body)

	if decodeErr == nil && body.Chart.Error != nil {
		cause := fmt.Errorf("yahoofinance: %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
		if body.Chart.Error.Code == "Not Found" || res.StatusCode == http.StatusNotFound {
			cause = fmt.Errorf("%w: %s", domain.ErrSymbolNotFound, body.Chart.Error.Description)
		}
		return nil, domain.NewFetchFailed(symbol, cause)
	}
	if res.StatusCode >= 400 {
		if res.StatusCode == http.StatusNotFound {
			return nil, domain.NewFetchFailed(symbol, domain.ErrSymbolNotFound)
		}
		return nil, domain.NewFetchFailed(symbol, fmt.Errorf("yahoofinance http %d", res.StatusCode))
	}
	if decodeErr != nil {
		return nil, domain.NewFetchFailed(symbol, fmt.Errorf("decode chart: %w", decodeErr))
	}
	if len(body.Chart.Result) == 0 {
		return nil, domain.NewFetchFailed(symbol, domain.ErrEmptyResult)
	}

	obs, err := toObservations(symbol, body.Chart.Result[0])
	if err != nil {
		return nil, domain.NewFetchFailed(symbol, err)
	}
	if len(obs) == 0 {
		return nil, domain.NewFetchFailed(symbol, domain.ErrEmptyResult)
	}
	return obs, nil
}

// toObservations は timestamp[] と close[] を突き合わせて取引日ごとの終値にします。
func toObservations(symbol entity.Symbol, r dto.ChartResult) ([]entity.Observation, error) {
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := r.Indicators.Quote[0].Close
	if len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("yahoofinance: %d timestamps but %d closes", len(r.Timestamp), len(closes))
	}

	loc := exchangeLocation(r.Meta)

	// 同じ日付が複数回現れた場合は後勝ち
	byDate := make(map[time.Time]entity.Observation, len(closes))
	for i, ts := range r.Timestamp {
		c := closes[i]
		if !c.Valid {
			continue
		}
		d := entity.CalendarDate(time.Unix(ts, 0).In(loc))
		byDate[d] = entity.Observation{Date: d, Symbol: symbol, Close: c.Decimal}
	}

	out := make([]entity.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func exchangeLocation(m dto.Meta) *time.Location {
	if m.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(m.ExchangeTimezoneName); err == nil {
			return loc
		}
		slog.Warn("unknown exchange timezone, using gmtoffset", "timezone", m.ExchangeTimezoneName)
	}
	return time.FixedZone("", m.GMTOffset)
}
