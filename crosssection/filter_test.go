package crosssection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

func TestNewDateRange(t *testing.T) {
	t.Parallel()

	r, err := NewDateRange(time.Date(2020, 1, 1, 13, 0, 0, 0, time.UTC), day(2020, 1, 1))
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2020, 1, 1, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(day(2020, 1, 2)))

	_, err = NewDateRange(day(2020, 1, 2), day(2020, 1, 1))
	assert.Error(t, err)
}

func TestFilterRangeIsIdempotent(t *testing.T) {
	t.Parallel()

	src := tickerTable("price",
		obs{day(2019, 12, 31), table.F(1)},
		obs{day(2020, 1, 1), table.F(2)},
		obs{day(2020, 1, 3), table.F(3)},
		obs{day(2020, 1, 4), table.F(4)},
	)
	r := mustRange(t, day(2020, 1, 1), day(2020, 1, 3))

	once, err := FilterRange(src, dateCol, r)
	require.NoError(t, err)
	twice, err := FilterRange(once, dateCol, r)
	require.NoError(t, err)

	assert.Equal(t, 2, once.Nrow())
	assert.True(t, once.Equal(twice))
	// input untouched
	assert.Equal(t, 4, src.Nrow())
}

func TestFilterRangeDropsNullDates(t *testing.T) {
	t.Parallel()

	src := table.MustNew(
		table.MustColumn(dateCol, table.Time, table.T(day(2020, 1, 2)), table.Null()),
		table.Floats("price", 1, 2),
	)
	out, err := FilterRange(src, dateCol, mustRange(t, day(2020, 1, 1), day(2020, 1, 3)))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Nrow())
}

func TestParseDateLayouts(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"2020-01-02", "2020-01-02T10:00:00Z", "2020-01-02 10:00:00", "2020/01/02", "20200102"} {
		ts, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, day(2020, 1, 2), NormalizeDate(ts), s)
	}
	_, err := ParseDate("Jan 2")
	assert.Error(t, err)
}

func TestProject(t *testing.T) {
	t.Parallel()

	src := table.MustNew(
		table.MustColumn(dateCol, table.Time, table.T(day(2020, 1, 2))),
		table.Floats("price", 1),
		table.Floats("volume", 2),
	)
	out, err := Project(src, dateCol, "volume", "AAA")
	require.NoError(t, err)
	assert.Equal(t, []string{dateCol, "AAA"}, out.Names())

	_, err = Project(src, dateCol, "missing", "AAA")
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	_, err = Project(src, dateCol, dateCol, "AAA")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestSortByDate(t *testing.T) {
	t.Parallel()

	src := tickerTable("price",
		obs{day(2020, 1, 5), table.F(1)},
		obs{day(2020, 1, 1), table.F(2)},
		obs{day(2020, 1, 5), table.F(3)},
	)
	out, dropped, err := SortByDate(src, dateCol)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assertValues(t, []table.Value{table.F(2), table.F(1)}, column(t, out, "price"))

	_, _, err = SortByDate(table.MustNew(table.Floats(dateCol, 1)), dateCol)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestOuterJoinAndUnionSize(t *testing.T) {
	t.Parallel()

	left := &panel{
		dates: []time.Time{day(2020, 1, 1), day(2020, 1, 3)},
		cols:  []int{0},
		vals:  [][]table.Value{{table.F(1), table.F(3)}},
	}
	right := &panel{
		dates: []time.Time{day(2020, 1, 2), day(2020, 1, 3), day(2020, 1, 4)},
		cols:  []int{1},
		vals:  [][]table.Value{{table.F(20), table.F(30), table.F(40)}},
		seq:   1,
	}
	assert.Equal(t, 4, unionSize(left.dates, right.dates))

	out := outerJoin(left, right)
	assert.Equal(t, []int{0, 1}, out.cols)
	assert.Equal(t, 4, out.rows())
	assertValues(t, []table.Value{table.F(1), table.Null(), table.F(3), table.Null()}, out.vals[0])
	assertValues(t, []table.Value{table.Null(), table.F(20), table.F(30), table.F(40)}, out.vals[1])
}
