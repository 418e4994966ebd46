package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/config"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	xtable "github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

func TestRenderTableKeepsLastRows(t *testing.T) {
	day := func(d int) xtable.Value { return xtable.T(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)) }
	tbl := xtable.MustNew(
		xtable.MustColumn("m_date", xtable.Time, day(2), day(3), day(4)),
		xtable.MustColumn("AAPL", xtable.Float, xtable.F(1.5), xtable.Null(), xtable.F(2)),
	)

	var buf bytes.Buffer
	renderTable(&buf, tbl, 2)
	out := buf.String()
	assert.NotContains(t, out, "2024-01-02")
	assert.Contains(t, out, "2024-01-03")
	assert.Contains(t, out, "2024-01-04")
	assert.Contains(t, out, "3 rows")

	buf.Reset()
	renderTable(&buf, tbl, 0)
	assert.Contains(t, buf.String(), "1.5")
}

func TestLatestDropsIdleTickers(t *testing.T) {
	one, zero := decimal.NewFromInt(1), decimal.Zero
	w := &portfolio.Weights{
		Tickers: []string{"AAPL", "MSFT", "XOM"},
		Dates: []time.Time{
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		Values: [][]decimal.Decimal{{one, zero}, {zero, one}, {zero, zero}},
	}

	got := latest(w, 1)
	require.Len(t, got.Dates, 1)
	assert.Equal(t, []string{"MSFT"}, got.Tickers)

	got = latest(w, 0)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Tickers)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"assemble", "run", "show", "runs", "portfolio", "serve", "config", "version"} {
		assert.Contains(t, names, want)
	}
	var sub []string
	for _, c := range configCmd.Commands() {
		sub = append(sub, c.Name())
	}
	assert.ElementsMatch(t, []string{"init", "validate", "show"}, sub)
	assert.True(t, strings.HasPrefix(rootCmd.Use, "xsection"))
}

func TestConfigShowPrintsMergedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xsection.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input_dir: curated\nworkers: 2\n"), 0o644))
	t.Setenv("XSECTION_WORKERS", "7")
	t.Setenv("XSECTION_START_DATE", "2021-03-01")

	show := func(args ...string) *config.Config {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(append([]string{"config", "show", "--config", path}, args...))
		t.Cleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetArgs(nil)
			cfgFile, configShowFormat = "", "yaml"
		})
		require.NoError(t, rootCmd.Execute())

		got := &config.Config{}
		if len(args) > 0 && args[len(args)-1] == "json" {
			require.NoError(t, json.Unmarshal(buf.Bytes(), got))
		} else {
			require.NoError(t, yaml.Unmarshal(buf.Bytes(), got))
		}
		return got
	}

	for _, got := range []*config.Config{show(), show("--format", "json")} {
		assert.Equal(t, "curated", got.InputDir)
		assert.Equal(t, 7, got.Workers)
		assert.Equal(t, "2021-03-01", got.StartDate)
		assert.Equal(t, config.Default().DateColumn, got.DateColumn)
	}
}
