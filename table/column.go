package table

import (
	"fmt"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// Column is an immutable named sequence of values of one declared kind,
// stored in a dataframe-go series. Individual cells may be null regardless of
// the declared kind. Bool cells are held as 0/1 in an Int64 series.
type Column struct {
	kind Kind
	s    dataframe.Series
}

// NewColumn copies vals into a new column. Every non-null value must match kind.
func NewColumn(name string, kind Kind, vals []Value) (*Column, error) {
	raw := make([]interface{}, len(vals))
	for i, v := range vals {
		if v.IsNull() {
			continue
		}
		if v.Kind() != kind {
			return nil, fmt.Errorf("column %q row %d: %s value in %s column", name, i, v.Kind(), kind)
		}
		raw[i] = v.raw()
	}
	return &Column{kind: kind, s: newSeries(name, kind, raw)}, nil
}

func newSeries(name string, kind Kind, raw []interface{}) dataframe.Series {
	switch kind {
	case Float:
		return dataframe.NewSeriesFloat64(name, nil, raw...)
	case Int, Bool:
		return dataframe.NewSeriesInt64(name, nil, raw...)
	case String:
		return dataframe.NewSeriesString(name, nil, raw...)
	case Time:
		return dataframe.NewSeriesTime(name, nil, raw...)
	default:
		return dataframe.NewSeriesMixed(name, nil, raw...)
	}
}

// raw is the value handed to a dataframe-go series constructor.
func (v Value) raw() interface{} {
	switch v.kind {
	case Float:
		return v.f
	case Int, Bool:
		return v.i
	case String:
		return v.s
	case Time:
		return v.t
	}
	return nil
}

// fromRaw converts a series cell back into a Value of the column's kind.
func fromRaw(kind Kind, x interface{}) Value {
	switch x := x.(type) {
	case nil:
		return Value{}
	case float64:
		return F(x)
	case int64:
		if kind == Bool {
			return B(x == 1)
		}
		return I(x)
	case string:
		return S(x)
	case time.Time:
		return T(x)
	}
	return Value{}
}

// MustColumn is NewColumn for literals in tests and fixtures; it panics on a kind mismatch.
func MustColumn(name string, kind Kind, vals ...Value) *Column {
	c, err := NewColumn(name, kind, vals)
	if err != nil {
		panic(err)
	}
	return c
}

// NullColumn returns a column of n nulls.
func NullColumn(name string, kind Kind, n int) *Column {
	return &Column{kind: kind, s: newSeries(name, kind, make([]interface{}, n))}
}

// Floats builds a Float column; NaN entries become null.
func Floats(name string, fs ...float64) *Column {
	raw := make([]interface{}, len(fs))
	for i, f := range fs {
		if v := F(f); !v.IsNull() {
			raw[i] = f
		}
	}
	return &Column{kind: Float, s: newSeries(name, Float, raw)}
}

func (c *Column) Name() string { return c.s.Name() }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return c.s.NRows() }

func (c *Column) Value(i int) Value { return fromRaw(c.kind, c.s.Value(i)) }

func (c *Column) IsNull(i int) bool { return c.s.Value(i) == nil }

// Values returns a copy of the column's cells.
func (c *Column) Values() []Value {
	out := make([]Value, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n, _ := c.s.NilCount()
	return n
}

// Renamed returns the same data under a new name.
func (c *Column) Renamed(name string) *Column {
	s := c.s.Copy()
	s.Rename(name)
	return &Column{kind: c.kind, s: s}
}

// Take returns a new column holding the rows at idx, in that order.
func (c *Column) Take(idx []int) *Column {
	raw := make([]interface{}, len(idx))
	for i, j := range idx {
		raw[i] = c.s.Value(j)
	}
	return &Column{kind: c.kind, s: newSeries(c.Name(), c.kind, raw)}
}

// Series returns a copy of the backing series.
func (c *Column) Series() dataframe.Series { return c.s.Copy() }
