package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

func day(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }

func crossSection() *table.Table {
	return table.MustNew(
		table.MustColumn("m_date", table.Time, table.T(day(2)), table.T(day(3)), table.T(day(6))),
		table.MustColumn("AAA", table.Float, table.F(1.5), table.Null(), table.F(-0.125)),
		table.MustColumn("BBB", table.Int, table.Null(), table.I(7), table.I(0)),
	)
}

func weights() *portfolio.Weights {
	return &portfolio.Weights{
		Tickers: []string{"AAA", "BBB"},
		Dates:   []time.Time{day(3), day(6)},
		Values: [][]decimal.Decimal{
			{decimal.RequireFromString("0.2"), decimal.Zero},
			{decimal.Zero, decimal.RequireFromString("0.2")},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestWriteTableCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.NoError(t, WriteTableCSV(&buf, crossSection()))

	want := "m_date,AAA,BBB\n" +
		"2020-01-02,1.5,\n" +
		"2020-01-03,,7\n" +
		"2020-01-06,-0.125,0\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	j, err := NewCSV(dir)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, j.RecordCrossSection(ctx, "R1", "c_trend_following_signal_21d", crossSection()))
	assert.NoError(t, j.RecordWeights(ctx, "R1", weights()))
	assert.NoError(t, j.RecordRun(ctx, Run{RunID: "R1", Features: []string{"c_trend_following_signal_21d"}}))
	assert.NoError(t, j.Close())

	recs := readCSV(t, filepath.Join(dir, "c_trend_following_signal_21d.csv"))
	assert.Equal(t, []string{"m_date", "AAA", "BBB"}, recs[0])
	assert.Len(t, recs, 4)

	recs = readCSV(t, filepath.Join(dir, PortfolioFile))
	assert.Equal(t, [][]string{
		{"Ticker", "2020-01-03", "2020-01-06"},
		{"AAA", "0.2", "0"},
		{"BBB", "0", "0.2"},
	}, recs)

	org, err := os.ReadFile(filepath.Join(dir, "run-R1.org"))
	require.NoError(t, err)
	assert.Contains(t, string(org), ":RUN_ID:      R1")
}

type failing struct{ *CSVJournal }

func (failing) Close() error { return errors.New("boom") }

func TestMultiJoinsErrors(t *testing.T) {
	t.Parallel()

	a, err := NewCSV(t.TempDir())
	require.NoError(t, err)
	b, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	m := Multi{a, b}
	assert.NoError(t, m.RecordCrossSection(context.Background(), "R1", "x", crossSection()))
	_, err = os.Stat(filepath.Join(a.Dir(), "x.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(b.Dir(), "x.csv"))
	assert.NoError(t, err)

	m = append(m, failing{a})
	err = m.Close()
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}
