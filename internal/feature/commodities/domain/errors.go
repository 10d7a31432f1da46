// Package domain defines domain-level errors for the commodities feature.
package domain

import (
	"errors"
	"fmt"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

var (
	// ErrFetchFailed marks every per-symbol extraction failure.
	// Transport errors, unknown symbols and empty series all collapse into it.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrSymbolNotFound is a fetch cause reported when the provider does not know the symbol.
	ErrSymbolNotFound = errors.New("symbol not recognized by provider")

	// ErrEmptyResult is a fetch cause reported when the provider returns no usable rows.
	ErrEmptyResult = errors.New("empty result set")

	// ErrLoadFailed marks every destination write that did not complete.
	// The destination is unchanged when this is returned.
	ErrLoadFailed = errors.New("load failed")
)

// FetchFailedError is the single failure outcome of a Source Adapter call.
type FetchFailedError struct {
	Symbol entity.Symbol
	Cause  error
}

// NewFetchFailed wraps cause for symbol.
func NewFetchFailed(symbol entity.Symbol, cause error) *FetchFailedError {
	return &FetchFailedError{Symbol: symbol, Cause: cause}
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Cause)
}

// Unwrap exposes the diagnostic cause.
func (e *FetchFailedError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrFetchFailed) hold for every FetchFailedError.
func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

// LoadFailureError is returned when a replace-commit could not complete.
type LoadFailureError struct {
	Table string
	Cause error
}

// NewLoadFailure wraps cause for table.
func NewLoadFailure(table string, cause error) *LoadFailureError {
	return &LoadFailureError{Table: table, Cause: cause}
}

func (e *LoadFailureError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Table, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *LoadFailureError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrLoadFailed) hold for every LoadFailureError.
func (e *LoadFailureError) Is(target error) bool { return target == ErrLoadFailed }
