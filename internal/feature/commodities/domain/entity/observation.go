// Package entity defines the domain models for the commodities feature.
package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used across the feature.
const DateLayout = "2006-01-02"

// Symbol is a ticker identifier for a tradable commodity instrument (e.g., "CL=F").
type Symbol string

// String returns the raw ticker.
func (s Symbol) String() string { return string(s) }

// ParseSymbols splits a comma-separated ticker list. Blank entries and
// repeats are dropped; first-seen order is kept.
func ParseSymbols(csv string) []Symbol {
	parts := strings.Split(csv, ",")
	out := make([]Symbol, 0, len(parts))
	seen := make(map[Symbol]struct{}, len(parts))
	for _, p := range parts {
		s := Symbol(strings.TrimSpace(p))
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

// Observation is one daily closing price for one symbol.
// (Symbol, Date) is the natural key.
type Observation struct {
	Date   time.Time       // Calendar date, midnight UTC of the exchange-local trading day
	Symbol Symbol          // Originating symbol
	Close  decimal.Decimal // Closing price
}

// CalendarDate truncates t to its calendar date in t's own location and
// returns it as midnight UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SymbolSeries is the successful fetch result for one symbol.
type SymbolSeries struct {
	Symbol       Symbol
	Observations []Observation
}
