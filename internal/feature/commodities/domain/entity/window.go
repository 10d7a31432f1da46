package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidWindow is returned when a LookbackWindow cannot be requested from a provider.
var ErrInvalidWindow = errors.New("invalid lookback window")

// PeriodUnit is the unit of a lookback period.
type PeriodUnit string

const (
	UnitDay   PeriodUnit = "d"
	UnitWeek  PeriodUnit = "wk"
	UnitMonth PeriodUnit = "mo"
	UnitYear  PeriodUnit = "y"
)

// Period is a positive span of history, e.g. 5 days or 1 year.
type Period struct {
	N    int
	Unit PeriodUnit
}

// String renders the period in provider notation ("5d", "3mo").
func (p Period) String() string {
	return strconv.Itoa(p.N) + string(p.Unit)
}

// ParsePeriod parses provider notation such as "5d", "2wk", "6mo", "1y".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i == len(s) {
		return Period{}, fmt.Errorf("%w: period %q", ErrInvalidWindow, s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q: %v", ErrInvalidWindow, s, err)
	}
	p := Period{N: n, Unit: PeriodUnit(s[i:])}
	if err := p.validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) validate() error {
	if p.N <= 0 {
		return fmt.Errorf("%w: period must be positive, got %q", ErrInvalidWindow, p.String())
	}
	switch p.Unit {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return nil
	}
	return fmt.Errorf("%w: unknown period unit %q", ErrInvalidWindow, string(p.Unit))
}

// Interval is the sampling granularity of a series.
type Interval string

// IntervalDaily is the only granularity the pipeline requests.
const IntervalDaily Interval = "1d"

// LookbackWindow is the span and granularity requested per symbol.
// Every Observation in one run shares the same window.
type LookbackWindow struct {
	Period   Period
	Interval Interval
}

// DefaultWindow returns the 5-day / 1-day window.
func DefaultWindow() LookbackWindow {
	return LookbackWindow{Period: Period{N: 5, Unit: UnitDay}, Interval: IntervalDaily}
}

// Validate reports whether the window can be requested.
func (w LookbackWindow) Validate() error {
	if err := w.Period.validate(); err != nil {
		return err
	}
	if w.Interval != IntervalDaily {
		return fmt.Errorf("%w: unsupported interval %q", ErrInvalidWindow, string(w.Interval))
	}
	return nil
}

func (w LookbackWindow) String() string {
	return w.Period.String() + "/" + string(w.Interval)
}
