// Package usecase implements the extract, aggregate and load steps of the commodities pipeline.
package usecase

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"commodity_etl/internal/feature/commodities/domain"
	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/shared/ratelimiter"
)

// SourceAdapter fetches one symbol's closing-price series from an external provider.
// Every failure is reported as *domain.FetchFailedError.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SourceAdapter interface {
	Fetch(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) ([]entity.Observation, error)
}

// FetchFailure records a symbol skipped during extraction.
type FetchFailure struct {
	Symbol entity.Symbol
	Err    error
}

// Extraction is the outcome of one Extract call.
type Extraction struct {
	Window   entity.LookbackWindow
	Series   []entity.SymbolSeries // successful symbols, in input order
	Failures []FetchFailure        // skipped symbols, in input order
}

// Dataset consolidates the successful series.
func (e Extraction) Dataset() entity.Dataset {
	return Aggregate(e.Window, e.Series)
}

// FailedSymbols lists the skipped symbols.
func (e Extraction) FailedSymbols() []entity.Symbol {
	out := make([]entity.Symbol, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Symbol)
	}
	return out
}

// ExtractUsecase drives the SourceAdapter once per symbol and isolates per-symbol failures.
type ExtractUsecase struct {
	source      SourceAdapter
	rateLimiter ratelimiter.RateLimiterInterface
	concurrency int
}

// NewExtractUsecase creates an ExtractUsecase. concurrency <= 1 fetches sequentially.
func NewExtractUsecase(source SourceAdapter, rateLimiter ratelimiter.RateLimiterInterface, concurrency int) *ExtractUsecase {
	if rateLimiter == nil {
		rateLimiter = ratelimiter.Noop{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExtractUsecase{source: source, rateLimiter: rateLimiter, concurrency: concurrency}
}

type fetchResult struct {
	obs []entity.Observation
	err error
}

// Extract fetches every symbol with the same window. A failing symbol is
// skipped and recorded; it never aborts the run. The only error returned
// is an invalid window, detected before any call is made.
func (eu *ExtractUsecase) Extract(ctx context.Context, symbols []entity.Symbol, window entity.LookbackWindow) (Extraction, error) {
	if err := window.Validate(); err != nil {
		return Extraction{}, err
	}

	symbols = uniqueSymbols(symbols)
	results := make([]fetchResult, len(symbols))

	if eu.concurrency == 1 || len(symbols) <= 1 {
		for i, s := range symbols {
			results[i] = eu.fetchOne(ctx, s, window)
		}
	} else {
		// fetchOne never returns an error to the group, so one symbol cannot cancel the others.
		var g errgroup.Group
		g.SetLimit(eu.concurrency)
		for i, s := range symbols {
			g.Go(func() error {
				results[i] = eu.fetchOne(ctx, s, window)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := Extraction{Window: window}
	for i, s := range symbols {
		r := results[i]
		if r.err != nil {
			slog.Warn("skipping symbol", "symbol", s, "window", window.String(), "error", r.err)
			out.Failures = append(out.Failures, FetchFailure{Symbol: s, Err: r.err})
			continue
		}
		slog.Info("fetched symbol", "symbol", s, "rows", len(r.obs))
		out.Series = append(out.Series, entity.SymbolSeries{Symbol: s, Observations: r.obs})
	}
	return out, nil
}

func (eu *ExtractUsecase) fetchOne(ctx context.Context, symbol entity.Symbol, window entity.LookbackWindow) fetchResult {
	if err := eu.rateLimiter.Wait(ctx); err != nil {
		return fetchResult{err: domain.NewFetchFailed(symbol, err)}
	}
	obs, err := eu.source.Fetch(ctx, symbol, window)
	if err != nil {
		var ff *domain.FetchFailedError
		if !errors.As(err, &ff) {
			err = domain.NewFetchFailed(symbol, err)
		}
		return fetchResult{err: err}
	}
	if len(obs) == 0 {
		return fetchResult{err: domain.NewFetchFailed(symbol, domain.ErrEmptyResult)}
	}
	return fetchResult{obs: obs}
}

func uniqueSymbols(symbols []entity.Symbol) []entity.Symbol {
	out := make([]entity.Symbol, 0, len(symbols))
	seen := make(map[entity.Symbol]struct{}, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
