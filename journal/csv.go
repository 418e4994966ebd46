package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// PortfolioFile is the name of the weights file written by CSVJournal.
const PortfolioFile = "portfolio.csv"

// WriteTableCSV writes t with a header row. Nulls are empty cells.
func WriteTableCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	rec := make([]string, t.Ncol())
	for i := 0; i < t.Nrow(); i++ {
		for j, v := range t.Row(i) {
			rec[j] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFileCSV creates path and writes t to it.
func WriteFileCSV(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTableCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CSVJournal writes one file per cross-section into a directory, plus
// portfolio.csv and an org summary of the run.
type CSVJournal struct {
	dir string
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVJournal{dir: dir}, nil
}

func (j *CSVJournal) Dir() string { return j.dir }

func (j *CSVJournal) RecordRun(_ context.Context, run Run) error {
	return WriteRunOrg(filepath.Join(j.dir, "run-"+run.RunID+".org"), run)
}

func (j *CSVJournal) RecordCrossSection(_ context.Context, _ string, name string, t *table.Table) error {
	if err := WriteFileCSV(filepath.Join(j.dir, name+".csv"), t); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (j *CSVJournal) RecordWeights(_ context.Context, _ string, w *portfolio.Weights) error {
	t, err := w.Table()
	if err != nil {
		return err
	}
	return WriteFileCSV(filepath.Join(j.dir, PortfolioFile), t)
}

func (j *CSVJournal) Close() error { return nil }
