// Package portfolio turns assembled cross-sections into rebalance dates and
// equal-weighted top-N allocations.
package portfolio

import (
	"fmt"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/crosssection"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// SignalColumn is the output column of RebalanceSignal unless overridden.
const SignalColumn = "rebalancing_signal"

// SignalParams controls the rebalance trigger: a rebalance fires once the
// signal column has stayed above Threshold for WindowDays consecutive rows.
type SignalParams struct {
	WindowDays int
	Threshold  float64
	Column     string
}

func (p SignalParams) column() string {
	if p.Column == "" {
		return SignalColumn
	}
	return p.Column
}

// RebalanceSignal computes the rebalance flag for one ticker's table over r.
// Null signal values count as zero. The last row never fires since there is
// no following date to trade on.
func RebalanceSignal(t *table.Table, dateColumn, signalColumn string, r crosssection.DateRange, p SignalParams) (*table.Table, error) {
	if p.WindowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", p.WindowDays)
	}
	filtered, err := crosssection.FilterRange(t, dateColumn, r)
	if err != nil {
		return nil, err
	}
	sorted, _, err := crosssection.SortByDate(filtered, dateColumn)
	if err != nil {
		return nil, err
	}
	src, ok := sorted.Col(signalColumn)
	if !ok {
		return nil, &crosssection.FeatureNotFoundError{Feature: signalColumn}
	}

	n := sorted.Nrow()
	out := make([]table.Value, n)
	count := 0
	for i := 0; i < n; i++ {
		x, ok := src.Value(i).Float()
		if ok && x > p.Threshold {
			count++
		} else {
			count = 0
		}
		if count >= p.WindowDays && i+1 < n {
			out[i] = table.I(1)
		} else {
			out[i] = table.I(0)
		}
	}

	dates, _ := sorted.Col(dateColumn)
	flag, err := table.NewColumn(p.column(), table.Int, out)
	if err != nil {
		return nil, err
	}
	return table.New(dates, flag)
}

// RebalanceDates collects the dates on which column equals 1.
func RebalanceDates(signal *table.Table, dateColumn, column string) (map[time.Time]bool, error) {
	dates, err := dateValues(signal, dateColumn)
	if err != nil {
		return nil, err
	}
	flags, ok := signal.Col(column)
	if !ok {
		return nil, &crosssection.FeatureNotFoundError{Feature: column}
	}
	out := make(map[time.Time]bool)
	for i, d := range dates {
		if d.IsZero() {
			continue
		}
		if isOne(flags.Value(i)) {
			out[d] = true
		}
	}
	return out, nil
}

// Universe maps each date of an investable-universe cross-section to the
// tickers flagged 1 on it.
func Universe(xs *table.Table, dateColumn string) (map[time.Time]map[string]bool, error) {
	dates, err := dateValues(xs, dateColumn)
	if err != nil {
		return nil, err
	}
	out := make(map[time.Time]map[string]bool, len(dates))
	for i, d := range dates {
		if d.IsZero() {
			continue
		}
		eligible := make(map[string]bool)
		for _, c := range xs.Columns() {
			if c.Name() == dateColumn {
				continue
			}
			if isOne(c.Value(i)) {
				eligible[c.Name()] = true
			}
		}
		out[d] = eligible
	}
	return out, nil
}

func isOne(v table.Value) bool {
	if b, ok := v.Bool(); ok {
		return b
	}
	f, ok := v.Float()
	return ok && f == 1
}

// dateValues returns the normalized dates of t; null dates come back zero.
func dateValues(t *table.Table, dateColumn string) ([]time.Time, error) {
	c, err := crosssection.NormalizeDateColumn(t, dateColumn)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, c.Len())
	for i := range out {
		out[i], _ = c.Value(i).Time()
	}
	return out, nil
}
