package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// SQLite stores runs losslessly: every cell keeps its kind, nulls are absent
// rows, and weights keep their decimal text.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(ctx context.Context, run Run) error {
	features, err := json.Marshal(nonNil(run.Features))
	if err != nil {
		return err
	}
	failed, err := json.Marshal(nonNil(run.Failed))
	if err != nil {
		return err
	}

	return j.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs
			(run_id, created, start_date, end_date, date_column, features, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Created.UTC(), table.FormatTime(run.Start), table.FormatTime(run.End),
			run.DateColumn, string(features), string(failed),
		)
		if err != nil {
			return err
		}
		for i, ticker := range run.Tickers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_tickers (run_id, position, ticker) VALUES (?, ?, ?)`,
				run.RunID, i, ticker); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *SQLite) RecordCrossSection(ctx context.Context, runID, name string, t *table.Table) error {
	return j.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cross_sections (run_id, name, nrows) VALUES (?, ?, ?)`,
			runID, name, t.Nrow()); err != nil {
			return err
		}
		for i, c := range t.Columns() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO table_columns (run_id, name, position, column_name, kind) VALUES (?, ?, ?, ?, ?)`,
				runID, name, i, c.Name(), c.Kind().String()); err != nil {
				return err
			}
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cells (run_id, name, row_idx, col_idx, value) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for col, c := range t.Columns() {
			for row := 0; row < c.Len(); row++ {
				v := c.Value(row)
				if v.IsNull() {
					continue
				}
				if _, err := stmt.ExecContext(ctx, runID, name, row, col, encodeValue(v)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (j *SQLite) RecordWeights(ctx context.Context, runID string, w *portfolio.Weights) error {
	return j.tx(ctx, func(tx *sql.Tx) error {
		for i, ticker := range w.Tickers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO weight_tickers (run_id, position, ticker) VALUES (?, ?, ?)`,
				runID, i, ticker); err != nil {
				return err
			}
		}
		for i := range w.Tickers {
			for k, d := range w.Dates {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO weights (run_id, ticker_pos, date, weight) VALUES (?, ?, ?, ?)`,
					runID, i, d.Format(time.DateOnly), w.Values[i][k].String()); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// encodeValue writes v in a form decodeValue can restore exactly.
func encodeValue(v table.Value) string {
	if ts, ok := v.Time(); ok {
		return ts.UTC().Format(time.RFC3339Nano)
	}
	return v.String()
}

func decodeValue(kind table.Kind, s string) (table.Value, error) {
	switch kind {
	case table.Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.F(f), nil
	case table.Int:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.I(i), nil
	case table.Bool:
		return table.B(s == "true"), nil
	case table.String:
		return table.S(s), nil
	case table.Time:
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return table.Value{}, err
		}
		return table.T(ts), nil
	}
	return table.Value{}, fmt.Errorf("cannot decode %s value %q", kind, s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
