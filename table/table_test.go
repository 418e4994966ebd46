package table

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sample() *Table {
	return MustNew(
		MustColumn("m_date", Time, T(day(2020, 1, 2)), T(day(2020, 1, 3)), T(day(2020, 1, 6))),
		Floats("price", 10, math.NaN(), 12),
		MustColumn("flag", Int, I(1), I(0), Null()),
	)
}

func TestNewRejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := New(Floats("a", 1, 2), Floats("b", 1))
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = New(Floats("a", 1), Floats("a", 2))
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = NewColumn("x", Float, []Value{S("oops")})
	assert.Error(t, err)
}

func TestSelectRenameFilter(t *testing.T) {
	t.Parallel()

	tbl := sample()
	assert.Equal(t, 3, tbl.Nrow())
	assert.Equal(t, []string{"m_date", "price", "flag"}, tbl.Names())

	sel, err := tbl.Select("m_date", "price")
	require.NoError(t, err)
	assert.Equal(t, []string{"m_date", "price"}, sel.Names())

	_, err = tbl.Select("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	ren, err := sel.Rename("m_date", "AAA")
	require.NoError(t, err)
	assert.Equal(t, []string{"m_date", "AAA"}, ren.Names())
	// the source is untouched
	assert.Equal(t, []string{"m_date", "price"}, sel.Names())

	filtered, err := tbl.Filter([]bool{true, false, true})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Nrow())
	price, _ := filtered.Col("price")
	assert.True(t, price.Value(0).Equal(F(10)))
	assert.True(t, price.Value(1).Equal(F(12)))

	_, err = tbl.Filter([]bool{true})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestWithColumnReplacesOrAppends(t *testing.T) {
	t.Parallel()

	tbl := sample()
	out, err := tbl.WithColumn(Floats("price", 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), out.Names())

	out, err = tbl.WithColumn(Floats("extra", 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"m_date", "price", "flag", "extra"}, out.Names())

	_, err = tbl.WithColumn(Floats("short", 1))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestValueNullPropagation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"add", F(1).Add(F(2)), F(3)},
		{"add null", F(1).Add(Null()), Null()},
		{"sub int widens", I(5).Sub(F(1.5)), F(3.5)},
		{"mul", F(2).Mul(F(4)), F(8)},
		{"div", F(1).Div(F(4)), F(0.25)},
		{"div by zero", F(1).Div(F(0)), Null()},
		{"log", F(1).Log(), F(0)},
		{"log negative", F(-1).Log(), Null()},
		{"gt", F(2).Gt(F(1)), B(true)},
		{"gt null", Null().Gt(F(1)), Null()},
		{"lt", F(2).Lt(F(1)), B(false)},
		{"nan is null", F(math.NaN()), Null()},
		{"string is not numeric", S("x").Add(F(1)), Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.got), "want %v got %v", tt.want, tt.got)
		})
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Null().String())
	assert.Equal(t, "0.1", F(0.1).String())
	assert.Equal(t, "42", I(42).String())
	assert.Equal(t, "true", B(true).String())
	assert.Equal(t, "2020-01-02", T(day(2020, 1, 2)).String())
	assert.Equal(t, "2020-01-02T15:04:05Z", T(time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC)).String())
}

func TestParseKindRoundTrip(t *testing.T) {
	t.Parallel()

	for k := NullKind; k <= Time; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("decimal")
	assert.False(t, ok)
}

func TestTableEqual(t *testing.T) {
	t.Parallel()

	a := sample()
	b := sample()
	assert.True(t, a.Equal(b))

	c, err := b.WithColumn(Floats("price", 10, 11, 12))
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestColumnSeriesBacking(t *testing.T) {
	t.Parallel()

	flags := MustColumn("held", Bool, B(true), Null(), B(false))
	assert.Equal(t, []Value{B(true), Null(), B(false)}, flags.Values())
	assert.Equal(t, 1, flags.NullCount())

	when := MustColumn("m_date", Time, T(day(2020, 1, 2)), Null())
	s := when.Series()
	assert.Equal(t, "m_date", s.Name())
	assert.Equal(t, 2, s.NRows())
	assert.Nil(t, s.Value(1))

	taken := Floats("px", 1, math.NaN(), 3).Take([]int{2, 1, 2})
	assert.Equal(t, []Value{F(3), Null(), F(3)}, taken.Values())

	renamed := flags.Renamed("active")
	assert.Equal(t, "active", renamed.Name())
	assert.Equal(t, "held", flags.Name())
	assert.True(t, renamed.Value(0).Equal(B(true)))

	empty := NullColumn("none", String, 3)
	assert.Equal(t, 3, empty.NullCount())
	assert.True(t, empty.IsNull(2))
}
