package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// ListRuns returns every recorded run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, created, start_date, end_date, date_column, features, failed
		FROM runs
		ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Tickers, err = j.tickers(ctx, "run_tickers", out[i].RunID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, start_date, end_date, date_column, features, failed
		FROM runs
		WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return Run{}, err
	}
	run.Tickers, err = j.tickers(ctx, "run_tickers", runID)
	return run, err
}

// CrossSections lists the table names stored for a run.
func (j *SQLite) CrossSections(ctx context.Context, runID string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT name FROM cross_sections WHERE run_id = ? ORDER BY name`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// LoadCrossSection rebuilds a stored table exactly as it was recorded.
func (j *SQLite) LoadCrossSection(ctx context.Context, runID, name string) (*table.Table, error) {
	var nrows int
	err := j.db.QueryRowContext(ctx,
		`SELECT nrows FROM cross_sections WHERE run_id = ? AND name = ?`, runID, name).Scan(&nrows)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("cross-section %q of run %q: %w", name, runID, ErrNotFound)
		}
		return nil, err
	}

	type colSpec struct {
		name string
		kind table.Kind
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT column_name, kind FROM table_columns
		WHERE run_id = ? AND name = ?
		ORDER BY position`, runID, name)
	if err != nil {
		return nil, err
	}
	var specs []colSpec
	for rows.Next() {
		var c colSpec
		var kind string
		if err := rows.Scan(&c.name, &kind); err != nil {
			rows.Close()
			return nil, err
		}
		k, ok := table.ParseKind(kind)
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("column %q has unknown kind %q", c.name, kind)
		}
		c.kind = k
		specs = append(specs, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vals := make([][]table.Value, len(specs))
	for i := range vals {
		vals[i] = make([]table.Value, nrows)
	}

	cells, err := j.db.QueryContext(ctx,
		`SELECT row_idx, col_idx, value FROM cells WHERE run_id = ? AND name = ?`, runID, name)
	if err != nil {
		return nil, err
	}
	defer cells.Close()
	for cells.Next() {
		var row, col int
		var raw string
		if err := cells.Scan(&row, &col, &raw); err != nil {
			return nil, err
		}
		if col >= len(specs) || row >= nrows {
			return nil, fmt.Errorf("cell (%d, %d) out of bounds", row, col)
		}
		v, err := decodeValue(specs[col].kind, raw)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", specs[col].name, row, err)
		}
		vals[col][row] = v
	}
	if err := cells.Err(); err != nil {
		return nil, err
	}

	cols := make([]*table.Column, len(specs))
	for i, s := range specs {
		c, err := table.NewColumn(s.name, s.kind, vals[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

// LoadWeights rebuilds the portfolio weights of a run.
func (j *SQLite) LoadWeights(ctx context.Context, runID string) (*portfolio.Weights, error) {
	tickers, err := j.tickers(ctx, "weight_tickers", runID)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("weights of run %q: %w", runID, ErrNotFound)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT ticker_pos, date, weight FROM weights
		WHERE run_id = ?
		ORDER BY date, ticker_pos`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	w := &portfolio.Weights{Tickers: tickers, Values: make([][]decimal.Decimal, len(tickers))}
	col := -1
	for rows.Next() {
		var (
			pos          int
			date, weight string
		)
		if err := rows.Scan(&pos, &date, &weight); err != nil {
			return nil, err
		}
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, err
		}
		if col < 0 || !w.Dates[col].Equal(d) {
			w.Dates = append(w.Dates, d)
			col++
		}
		if pos >= len(tickers) {
			return nil, fmt.Errorf("weight for ticker position %d out of range", pos)
		}
		v, err := decimal.NewFromString(weight)
		if err != nil {
			return nil, err
		}
		w.Values[pos] = append(w.Values[pos], v)
	}
	return w, rows.Err()
}

func (j *SQLite) tickers(ctx context.Context, from, runID string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT ticker FROM `+from+` WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run              Run
		start, end       string
		features, failed string
	)
	if err := s.Scan(&run.RunID, &run.Created, &start, &end, &run.DateColumn, &features, &failed); err != nil {
		return Run{}, err
	}
	var err error
	if run.Start, err = parseStamp(start); err != nil {
		return Run{}, err
	}
	if run.End, err = parseStamp(end); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(features), &run.Features); err != nil {
		return Run{}, fmt.Errorf("decode features: %w", err)
	}
	if err := json.Unmarshal([]byte(failed), &run.Failed); err != nil {
		return Run{}, fmt.Errorf("decode failed features: %w", err)
	}
	return run, nil
}

func parseStamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
