package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	assert.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, name := range []string{"runs", "run_tickers", "cross_sections", "table_columns", "cells", "weight_tickers", "weights"} {
		assert.True(t, found[name], name)
	}
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	older := Run{
		RunID:      "01A",
		Created:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Start:      day(1),
		End:        day(31),
		DateColumn: "m_date",
		Features:   []string{"f1", "f2"},
		Tickers:    []string{"AAA", "BBB"},
		Failed:     []string{"f2"},
	}
	newer := Run{RunID: "01B", Created: older.Created.Add(time.Hour), DateColumn: "m_date"}
	require.NoError(t, j.RecordRun(ctx, older))
	require.NoError(t, j.RecordRun(ctx, newer))

	got, err := j.GetRun(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, older.RunID, got.RunID)
	assert.True(t, older.Created.Equal(got.Created))
	assert.True(t, older.Start.Equal(got.Start))
	assert.True(t, older.End.Equal(got.End))
	assert.Equal(t, older.Features, got.Features)
	assert.Equal(t, older.Tickers, got.Tickers)
	assert.Equal(t, older.Failed, got.Failed)

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "01B", runs[0].RunID)
	assert.Empty(t, runs[0].Features)

	_, err = j.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// run ids are unique
	assert.Error(t, j.RecordRun(ctx, older))
}

func TestSQLiteCrossSectionIsLossless(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	src := table.MustNew(
		table.MustColumn("m_date", table.Time, table.T(day(2)), table.T(day(3))),
		table.MustColumn("f", table.Float, table.F(0.1+0.2), table.Null()),
		table.MustColumn("i", table.Int, table.I(-3), table.I(1<<40)),
		table.MustColumn("b", table.Bool, table.Null(), table.B(true)),
		table.MustColumn("s", table.String, table.S("a,b"), table.S("")),
	)
	require.NoError(t, j.RecordCrossSection(ctx, "R1", "mixed", src))
	require.NoError(t, j.RecordCrossSection(ctx, "R1", "empty", table.MustNew(table.NullColumn("m_date", table.Time, 0))))

	got, err := j.LoadCrossSection(ctx, "R1", "mixed")
	require.NoError(t, err)
	assert.True(t, src.Equal(got))

	empty, err := j.LoadCrossSection(ctx, "R1", "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Nrow())

	names, err := j.CrossSections(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "mixed"}, names)

	_, err = j.LoadCrossSection(ctx, "R1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteWeightsRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	w := weights()
	require.NoError(t, j.RecordWeights(ctx, "R1", w))

	got, err := j.LoadWeights(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, w.Tickers, got.Tickers)
	require.Len(t, got.Dates, len(w.Dates))
	for k := range w.Dates {
		assert.True(t, w.Dates[k].Equal(got.Dates[k]))
		for i := range w.Tickers {
			assert.True(t, w.Values[i][k].Equal(got.Values[i][k]))
		}
	}

	_, err = j.LoadWeights(ctx, "R2")
	assert.ErrorIs(t, err, ErrNotFound)
}
