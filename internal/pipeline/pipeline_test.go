package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/config"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/features"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/internal/metrics"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/journal"
)

const days = 100

var start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// writeTicker writes a curated market data file: close(i), fixed volume,
// high 5% above low.
func writeTicker(t *testing.T, dir, ticker string, closeAt func(i int) float64, volume float64) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "m_date,%s,%s,%s,%s\n", features.ColClose, features.ColVolume, features.ColHigh, features.ColLow)
	// newest first, the way some providers deliver it
	for i := days - 1; i >= 0; i-- {
		c := closeAt(i)
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g\n", start.AddDate(0, 0, i).Format(time.DateOnly), c, volume, c*1.05, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	in := t.TempDir()
	writeTicker(t, in, "AAA", func(i int) float64 { return 100 + float64(i) }, 2e7)
	writeTicker(t, in, "BBB", func(i int) float64 { return 200 + float64(i) }, 1e5)
	writeTicker(t, in, "SPY", func(int) float64 { return 100 }, 2e7)

	out := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = in
	cfg.StartDate = "2020-01-01"
	cfg.EndDate = "2020-12-31"
	cfg.Features = []string{"c_trend_following_signal_21d", "c_investable_universe_63d"}
	cfg.Rebalance.WindowDays = 1
	cfg.Portfolio.TopN = 1
	cfg.Output.Dir = out
	cfg.Output.Formats = []string{"csv", "sqlite"}
	cfg.Output.DBPath = filepath.Join(out, "runs.db")
	cfg.Output.MetricsFile = filepath.Join(out, "xsection.prom")
	require.NoError(t, cfg.Validate())
	return cfg
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	p := New(cfg, quiet(), metrics.New())
	j, err := p.OpenJournal()
	require.NoError(t, err)

	out, err := p.Run(context.Background(), j, true)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Empty(t, out.Result.Failed())
	assert.Equal(t, []string{"AAA", "BBB", "SPY"}, out.Run.Tickers)

	xs := out.Result.Tables["c_investable_universe_63d"]
	require.NotNil(t, xs)
	assert.Equal(t, days, xs.Nrow())

	// the universe opens on row 62, AAA leads the trend signal, and weights
	// land on the following date
	require.NotNil(t, out.Allocation)
	w := out.Allocation.Weights
	require.NotEmpty(t, w.Dates)
	assert.True(t, w.Dates[0].Equal(start.AddDate(0, 0, 63)), w.Dates[0])
	got, ok := w.Weight("AAA", start.AddDate(0, 0, 63))
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(1)))
	got, _ = w.Weight("BBB", start.AddDate(0, 0, 63))
	assert.True(t, got.IsZero())

	for _, name := range []string{"c_trend_following_signal_21d.csv", "c_investable_universe_63d.csv", "rebalance_signal_SPY.csv", journal.PortfolioFile, "xsection.prom"} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, name)
	}

	db, err := journal.NewSQLite(cfg.Output.DBPath)
	require.NoError(t, err)
	defer db.Close()
	run, err := db.GetRun(context.Background(), out.Run.RunID)
	require.NoError(t, err)
	assert.Equal(t, out.Run.Tickers, run.Tickers)
	stored, err := db.LoadCrossSection(context.Background(), out.Run.RunID, "c_trend_following_signal_21d")
	require.NoError(t, err)
	assert.True(t, stored.Equal(out.Result.Tables["c_trend_following_signal_21d"]))
}

func TestRunWithoutDerivationRecordsFailures(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Derive = false
	cfg.Output.Formats = []string{"csv"}
	p := New(cfg, quiet(), nil)
	j, err := p.OpenJournal()
	require.NoError(t, err)
	defer j.Close()

	out, err := p.Run(context.Background(), j, true)
	assert.Error(t, err, "portfolio needs the missing cross-sections")
	require.NotNil(t, out)
	assert.Equal(t, cfg.Features, out.Run.Failed)
	assert.Nil(t, out.Allocation)

	org, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "run-"+out.Run.RunID+".org"))
	require.NoError(t, err)
	assert.Contains(t, string(org), "| c_investable_universe_63d | failed |")
}

func TestLoadDerivesOnlyWhatIsMissing(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Identifiers = []string{"SPY"}
	inputs, err := New(cfg, quiet(), nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	tbl := inputs[0].Table
	for _, name := range []string{"c_trend_following_signal_21d", "c_investable_universe_63d", "c_log_difference_high_to_low", "c_daily_traded_value"} {
		assert.True(t, tbl.Has(name), name)
	}
	assert.False(t, tbl.Has("c_trend_following_signal_252d"))
}

func TestLoadCountsDuplicateDates(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Identifiers = []string{"AAA"}
	f, err := os.OpenFile(filepath.Join(cfg.InputDir, "AAA.csv"), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "%s,1,1,1.05,1\n", start.AddDate(0, 0, 10).Format(time.DateOnly))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	m := metrics.New()
	inputs, err := New(cfg, quiet(), m).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, inputs, 1)

	assert.Equal(t, days, inputs[0].Table.Nrow())
	assert.Equal(t, 1.0, m.Total("xsection_duplicate_dates_total"))

	px, ok := inputs[0].Table.Col(features.ColClose)
	require.True(t, ok)
	got, ok := px.Value(10).Float()
	require.True(t, ok)
	assert.Equal(t, 110.0, got, "first occurrence kept")
}

func TestOpenJournalRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Formats = []string{"csv", "parquet"}
	_, err := New(cfg, nil, nil).OpenJournal()
	assert.Error(t, err)
}
