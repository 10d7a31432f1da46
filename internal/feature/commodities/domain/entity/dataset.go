package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMalformedDataset is returned when a Dataset breaks the row schema or the natural key.
	ErrMalformedDataset = errors.New("malformed dataset")

	// ErrInvalidTarget is returned when a LoadTarget cannot be written.
	ErrInvalidTarget = errors.New("invalid load target")
)

// Dataset is the consolidated result of one pipeline run.
// It exists only for the duration of that run.
type Dataset struct {
	Window       LookbackWindow
	Observations []Observation
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Observations) }

// IsEmpty reports whether the dataset has no rows.
func (d Dataset) IsEmpty() bool { return len(d.Observations) == 0 }

// Symbols returns the distinct symbols in row order.
func (d Dataset) Symbols() []Symbol {
	var out []Symbol
	seen := make(map[Symbol]struct{})
	for _, o := range d.Observations {
		if _, ok := seen[o.Symbol]; ok {
			continue
		}
		seen[o.Symbol] = struct{}{}
		out = append(out, o.Symbol)
	}
	return out
}

// Validate checks that every row has a date, a symbol and a close, and
// that no (symbol, date) pair repeats.
func (d Dataset) Validate() error {
	type key struct {
		symbol Symbol
		date   string
	}
	seen := make(map[key]struct{}, len(d.Observations))
	for i, o := range d.Observations {
		if o.Date.IsZero() {
			return fmt.Errorf("%w: row %d has no date", ErrMalformedDataset, i)
		}
		if o.Symbol == "" {
			return fmt.Errorf("%w: row %d has no symbol", ErrMalformedDataset, i)
		}
		k := key{symbol: o.Symbol, date: o.Date.Format(DateLayout)}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%w: duplicate row for %s on %s", ErrMalformedDataset, k.symbol, k.date)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// WriteMode is how the Loader treats existing table contents.
type WriteMode string

// WriteModeReplace supersedes the whole table on every load.
const WriteModeReplace WriteMode = "replace"

// ReplaceStrategy selects how a replace is carried out in the destination.
type ReplaceStrategy string

const (
	// StrategyTruncate keeps the table and swaps its rows inside one transaction.
	StrategyTruncate ReplaceStrategy = "truncate"
	// StrategyRecreate drops and recreates the table inside one transaction.
	StrategyRecreate ReplaceStrategy = "recreate"
)

// ParseReplaceStrategy maps a config value to a strategy. Empty means truncate.
func ParseReplaceStrategy(s string) (ReplaceStrategy, error) {
	switch ReplaceStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyTruncate:
		return StrategyTruncate, nil
	case StrategyRecreate:
		return StrategyRecreate, nil
	}
	return "", fmt.Errorf("%w: unknown replace strategy %q", ErrInvalidTarget, s)
}

var tableNameRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*\.)?[A-Za-z_][A-Za-z0-9_]*$`)

// LoadTarget names the destination table and how it is written.
type LoadTarget struct {
	Table    string
	Mode     WriteMode
	Strategy ReplaceStrategy
}

// NewReplaceTarget returns a replace-mode target for table.
func NewReplaceTarget(table string, strategy ReplaceStrategy) LoadTarget {
	return LoadTarget{Table: table, Mode: WriteModeReplace, Strategy: strategy}
}

// Validate checks the table identifier and the write mode.
func (t LoadTarget) Validate() error {
	if !tableNameRe.MatchString(t.Table) {
		return fmt.Errorf("%w: table name %q", ErrInvalidTarget, t.Table)
	}
	if t.Mode != WriteModeReplace {
		return fmt.Errorf("%w: write mode %q", ErrInvalidTarget, string(t.Mode))
	}
	switch t.Strategy {
	case StrategyTruncate, StrategyRecreate:
		return nil
	}
	return fmt.Errorf("%w: replace strategy %q", ErrInvalidTarget, string(t.Strategy))
}
