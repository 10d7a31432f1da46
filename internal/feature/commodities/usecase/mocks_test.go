package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"commodity_etl/internal/feature/commodities/domain"
	"commodity_etl/internal/feature/commodities/domain/entity"
)

var ErrDB = errors.New("database error")

// mockSourceAdapter is a mock implementation of the SourceAdapter interface.
type mockSourceAdapter struct {
	mu        sync.Mutex
	FetchFunc func(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) ([]entity.Observation, error)
	Calls     []entity.Symbol
}

func (m *mockSourceAdapter) Fetch(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) ([]entity.Observation, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, symbol)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol, window)
	}
	return nil, errors.New("FetchFunc is not implemented")
}

// mockRateLimiter counts Wait calls and never blocks.
type mockRateLimiter struct {
	mu        sync.Mutex
	WaitCalls int
}

func (m *mockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	m.WaitCalls++
	m.mu.Unlock()
	return ctx.Err()
}

// mockObservationRepository is an in-memory ObservationRepository keyed by table.
type mockObservationRepository struct {
	ReplaceAllFunc  func(ctx context.Context, target entity.LoadTarget, observations []entity.Observation) (int64, error)
	ReplaceAllCalls int
	tables          map[string][]entity.Observation
}

func newMockObservationRepository() *mockObservationRepository {
	return &mockObservationRepository{tables: map[string][]entity.Observation{}}
}

func (m *mockObservationRepository) ReplaceAll(ctx context.Context, target entity.LoadTarget, observations []entity.Observation) (int64, error) {
	m.ReplaceAllCalls++
	if m.ReplaceAllFunc != nil {
		if _, err := m.ReplaceAllFunc(ctx, target, observations); err != nil {
			return 0, err
		}
	}
	m.tables[target.Table] = append([]entity.Observation(nil), observations...)
	return int64(len(observations)), nil
}

// mockArchiver records archived datasets.
type mockArchiver struct {
	ArchiveFunc func(ctx context.Context, table string, ds entity.Dataset) (string, error)
	Archived    []entity.Dataset
}

func (m *mockArchiver) Archive(ctx context.Context, table string, ds entity.Dataset) (string, error) {
	m.Archived = append(m.Archived, ds)
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, table, ds)
	}
	return "/tmp/" + table + ".parquet", nil
}

var baseDay = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

// series builds n consecutive daily observations for symbol.
func series(symbol entity.Symbol, n int, start float64) []entity.Observation {
	out := make([]entity.Observation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, entity.Observation{
			Date:   baseDay.AddDate(0, 0, i),
			Symbol: symbol,
			Close:  decimal.NewFromFloat(start + float64(i)),
		})
	}
	return out
}

// sourceWith returns a FetchFunc serving fixed series and failing for the listed symbols.
func sourceWith(rows map[entity.Symbol]int, failing ...entity.Symbol) func(context.Context, entity.Symbol, entity.LookbackWindow) ([]entity.Observation, error) {
	fail := map[entity.Symbol]bool{}
	for _, s := range failing {
		fail[s] = true
	}
	return func(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) ([]entity.Observation, error) {
		if fail[symbol] {
			return nil, domain.NewFetchFailed(symbol, domain.ErrSymbolNotFound)
		}
		return series(symbol, rows[symbol], 70), nil
	}
}
