// Package frame loads per-ticker time series from delimited files into
// tables.
package frame

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/sync/errgroup"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/crosssection"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// NaNValues are the cell spellings read as missing.
var NaNValues = []string{"", "NA", "NaN", "nan", "null", "NULL"}

// ReadCSV reads a headered CSV. Column types are detected from the data; the
// date column is always read as text and parsed into dates.
func ReadCSV(r io.Reader, dateColumn string) (*table.Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NaNValues),
		dataframe.WithTypes(map[string]series.Type{dateColumn: series.String}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}
	return FromDataFrame(df, dateColumn)
}

// FromDataFrame converts a gota frame. If the frame has a text column named
// dateColumn it is parsed into dates.
func FromDataFrame(df dataframe.DataFrame, dateColumn string) (*table.Table, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	names := df.Names()
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		c, err := fromSeries(df.Col(name), name == dateColumn)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

func fromSeries(s series.Series, isDate bool) (*table.Column, error) {
	n := s.Len()
	vals := make([]table.Value, n)

	if isDate && s.Type() == series.String {
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() || strings.TrimSpace(e.String()) == "" {
				continue
			}
			ts, err := crosssection.ParseDate(e.String())
			if err != nil {
				return nil, &crosssection.SchemaError{Column: s.Name, Reason: fmt.Sprintf("row %d: %v", i, err)}
			}
			vals[i] = table.T(ts)
		}
		return table.NewColumn(s.Name, table.Time, vals)
	}

	var kind table.Kind
	switch s.Type() {
	case series.Float:
		kind = table.Float
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !e.IsNA() {
				vals[i] = table.F(e.Float())
			}
		}
	case series.Int:
		kind = table.Int
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			v, err := e.Int()
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", s.Name, i, err)
			}
			vals[i] = table.I(int64(v))
		}
	case series.Bool:
		kind = table.Bool
		for i := 0; i < n; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				continue
			}
			v, err := e.Bool()
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", s.Name, i, err)
			}
			vals[i] = table.B(v)
		}
	default:
		kind = table.String
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !e.IsNA() {
				vals[i] = table.S(e.String())
			}
		}
	}
	return table.NewColumn(s.Name, kind, vals)
}

// ReadFile reads one CSV file.
func ReadFile(path, dateColumn string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f, dateColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Loader reads ticker files from a directory, one <identifier>.csv each.
type Loader struct {
	Dir        string
	DateColumn string
	// Workers bounds concurrent file reads; zero means one per file.
	Workers int

	logger *slog.Logger
}

func NewLoader(dir, dateColumn string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Dir: dir, DateColumn: dateColumn, logger: logger.With("component", "frame")}
}

// Identifiers lists the tickers with a CSV file in the directory, sorted.
func (l *Loader) Identifiers() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads the given identifiers, or every CSV in the directory when
// identifiers is empty. Results keep the identifier order.
func (l *Loader) Load(ctx context.Context, identifiers []string) ([]crosssection.TickerTable, error) {
	if len(identifiers) == 0 {
		ids, err := l.Identifiers()
		if err != nil {
			return nil, err
		}
		identifiers = ids
	}

	out := make([]crosssection.TickerTable, len(identifiers))
	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, id := range identifiers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(filepath.Join(l.Dir, id+".csv"), l.DateColumn)
			if err != nil {
				return fmt.Errorf("load %s: %w", id, err)
			}
			l.logger.Debug("loaded ticker", "ticker", id, "rows", t.Nrow(), "columns", t.Ncol())
			out[i] = crosssection.TickerTable{Ticker: id, Table: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.logger.Info("loaded tickers", "dir", l.Dir, "count", len(out))
	return out, nil
}

// LoadDir is a shorthand for NewLoader(dir, dateColumn, nil).Load.
func LoadDir(ctx context.Context, dir, dateColumn string, identifiers []string) ([]crosssection.TickerTable, error) {
	return NewLoader(dir, dateColumn, nil).Load(ctx, identifiers)
}
