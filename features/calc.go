// Package features computes derived per-ticker columns. Every calculation
// works on nullable values: a missing input yields a missing output.
package features

import (
	"fmt"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

func sameLength(cols ...*table.Column) error {
	for _, c := range cols[1:] {
		if c.Len() != cols[0].Len() {
			return fmt.Errorf("%w: %q has %d rows, %q has %d",
				table.ErrLengthMismatch, cols[0].Name(), cols[0].Len(), c.Name(), c.Len())
		}
	}
	return nil
}

func zip(name string, a, b *table.Column, fn func(x, y table.Value) table.Value) (*table.Column, error) {
	if err := sameLength(a, b); err != nil {
		return nil, err
	}
	out := make([]table.Value, a.Len())
	for i := range out {
		out[i] = fn(a.Value(i), b.Value(i))
	}
	return table.NewColumn(name, table.Float, out)
}

// SimpleMovingAverage is the trailing mean over window rows. Rows before the
// window is full, or whose window contains a null, are null.
func SimpleMovingAverage(c *table.Column, window int, name string) (*table.Column, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	out := make([]table.Value, c.Len())
	sum := 0.0
	nulls := 0
	for i := 0; i < c.Len(); i++ {
		if x, ok := c.Value(i).Float(); ok {
			sum += x
		} else {
			nulls++
		}
		if i >= window {
			if x, ok := c.Value(i - window).Float(); ok {
				sum -= x
			} else {
				nulls--
			}
		}
		if i >= window-1 && nulls == 0 {
			out[i] = table.F(sum / float64(window))
		}
	}
	return table.NewColumn(name, table.Float, out)
}

// TrendFollowingSignal is the relative distance of price from its moving
// average: (close - sma) / sma.
func TrendFollowingSignal(price, sma *table.Column, name string) (*table.Column, error) {
	return zip(name, price, sma, func(c, s table.Value) table.Value {
		return c.Sub(s).Div(s)
	})
}

// DailyTradedValue is price * volume.
func DailyTradedValue(price, volume *table.Column, name string) (*table.Column, error) {
	return zip(name, price, volume, table.Value.Mul)
}

// LogDifferenceHighToLow is ln(high) - ln(low), the log intraday range.
func LogDifferenceHighToLow(high, low *table.Column, name string) (*table.Column, error) {
	return zip(name, high, low, func(h, l table.Value) table.Value {
		return h.Log().Sub(l.Log())
	})
}

// InvestableUniverse flags rows whose value exceeds threshold with 1, others
// with 0. Null inputs stay null.
func InvestableUniverse(c *table.Column, threshold float64, name string) (*table.Column, error) {
	out := make([]table.Value, c.Len())
	limit := table.F(threshold)
	for i := range out {
		gt, ok := c.Value(i).Gt(limit).Bool()
		if !ok {
			continue
		}
		if gt {
			out[i] = table.I(1)
		} else {
			out[i] = table.I(0)
		}
	}
	return table.NewColumn(name, table.Int, out)
}
