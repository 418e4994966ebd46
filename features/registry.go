package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// Market columns produced by the upstream data curator.
const (
	ColClose  = "m_close_dividend_and_split_adjusted"
	ColHigh   = "m_high_dividend_and_split_adjusted"
	ColLow    = "m_low_dividend_and_split_adjusted"
	ColVolume = "m_volume_dividend_and_split_adjusted"
)

// InvestableThreshold is the minimum 63-day average traded value for a ticker
// to be investable.
const InvestableThreshold = 1_000_000_000

var (
	ErrUnknownCalculation = errors.New("unknown calculation")
	ErrMissingInput       = errors.New("missing calculation input")
	ErrCycle              = errors.New("calculation cycle")
)

// Func computes a column named name from its inputs, given in declared order.
type Func func(inputs []*table.Column, name string) (*table.Column, error)

// Calculation is a named derived column and the columns it reads.
type Calculation struct {
	Name   string
	Inputs []string
	Fn     Func
}

// Registry holds calculations by output name.
type Registry struct {
	calcs map[string]Calculation
}

func NewRegistry() *Registry {
	return &Registry{calcs: make(map[string]Calculation)}
}

// Register adds c, refusing duplicates.
func (r *Registry) Register(c Calculation) error {
	if c.Name == "" || c.Fn == nil {
		return fmt.Errorf("calculation needs a name and a function")
	}
	if _, ok := r.calcs[c.Name]; ok {
		return fmt.Errorf("calculation %q already registered", c.Name)
	}
	r.calcs[c.Name] = c
	return nil
}

func (r *Registry) mustRegister(c Calculation) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Calculation, bool) {
	c, ok := r.calcs[name]
	return c, ok
}

// Names returns the registered calculation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.calcs))
	for n := range r.calcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Derive appends every requested column that t lacks and the registry can
// compute, resolving chained calculations. Rows must already be in date order.
// Names that are neither present nor registered are left for the caller to
// report.
func (r *Registry) Derive(t *table.Table, names ...string) (*table.Table, error) {
	out := t
	for _, name := range names {
		if out.Has(name) {
			continue
		}
		if _, ok := r.calcs[name]; !ok {
			continue
		}
		var err error
		out, err = r.derive(out, name, nil)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Registry) derive(t *table.Table, name string, path []string) (*table.Table, error) {
	if t.Has(name) {
		return t, nil
	}
	for _, p := range path {
		if p == name {
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(append(path, name), " -> "))
		}
	}
	c, ok := r.calcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCalculation, name)
	}

	path = append(path, name)
	inputs := make([]*table.Column, len(c.Inputs))
	for i, in := range c.Inputs {
		if !t.Has(in) {
			if _, ok := r.calcs[in]; !ok {
				return nil, fmt.Errorf("%w: %s needs %s", ErrMissingInput, name, in)
			}
			var err error
			if t, err = r.derive(t, in, path); err != nil {
				return nil, err
			}
		}
		inputs[i], _ = t.Col(in)
	}

	col, err := c.Fn(inputs, name)
	if err != nil {
		return nil, fmt.Errorf("calculate %s: %w", name, err)
	}
	return t.WithColumn(col)
}

func sma(window int) Func {
	return func(in []*table.Column, name string) (*table.Column, error) {
		return SimpleMovingAverage(in[0], window, name)
	}
}

func pair(fn func(a, b *table.Column, name string) (*table.Column, error)) Func {
	return func(in []*table.Column, name string) (*table.Column, error) {
		return fn(in[0], in[1], name)
	}
}

// DefaultRegistry registers the trend-following portfolio's calculations.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.mustRegister(Calculation{
		Name:   "c_simple_moving_average_21d_close_dividend_and_split_adjusted",
		Inputs: []string{ColClose},
		Fn:     sma(21),
	})
	r.mustRegister(Calculation{
		Name:   "c_simple_moving_average_252d_close_dividend_and_split_adjusted",
		Inputs: []string{ColClose},
		Fn:     sma(252),
	})
	r.mustRegister(Calculation{
		Name:   "c_trend_following_signal_21d",
		Inputs: []string{ColClose, "c_simple_moving_average_21d_close_dividend_and_split_adjusted"},
		Fn:     pair(TrendFollowingSignal),
	})
	r.mustRegister(Calculation{
		Name:   "c_trend_following_signal_252d",
		Inputs: []string{ColClose, "c_simple_moving_average_252d_close_dividend_and_split_adjusted"},
		Fn:     pair(TrendFollowingSignal),
	})
	r.mustRegister(Calculation{
		Name:   "c_daily_traded_value",
		Inputs: []string{ColClose, ColVolume},
		Fn:     pair(DailyTradedValue),
	})
	r.mustRegister(Calculation{
		Name:   "c_daily_traded_value_sma_63d",
		Inputs: []string{"c_daily_traded_value"},
		Fn:     sma(63),
	})
	r.mustRegister(Calculation{
		Name:   "c_investable_universe_63d",
		Inputs: []string{"c_daily_traded_value_sma_63d"},
		Fn: func(in []*table.Column, name string) (*table.Column, error) {
			return InvestableUniverse(in[0], InvestableThreshold, name)
		},
	})
	r.mustRegister(Calculation{
		Name:   "c_log_difference_high_to_low",
		Inputs: []string{ColHigh, ColLow},
		Fn:     pair(LogDifferenceHighToLow),
	})
	return r
}
