package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

const maxSheetName = 31

// XLSXJournal collects every record into one workbook, a sheet per table,
// saved on Close.
type XLSXJournal struct {
	path string

	mu     sync.Mutex
	f      *excelize.File
	sheets map[string]bool
}

func NewXLSX(path string) *XLSXJournal {
	return &XLSXJournal{path: path, f: excelize.NewFile(), sheets: make(map[string]bool)}
}

// SheetName maps name onto a valid worksheet name: forbidden characters are
// replaced and the result is cut to 31 characters.
func SheetName(name string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	s = strings.Trim(s, "'")
	if s == "" {
		s = "sheet"
	}
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}

// addSheet creates a uniquely named sheet; the workbook's default sheet is
// reused for the first one.
func (j *XLSXJournal) addSheet(name string) (string, error) {
	base := SheetName(name)
	sheet := base
	for n := 2; j.sheets[strings.ToLower(sheet)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		sheet = string(r) + suffix
	}

	if len(j.sheets) == 0 {
		if err := j.f.SetSheetName(j.f.GetSheetName(0), sheet); err != nil {
			return "", err
		}
	} else if _, err := j.f.NewSheet(sheet); err != nil {
		return "", err
	}
	j.sheets[strings.ToLower(sheet)] = true
	return sheet, nil
}

func (j *XLSXJournal) writeRows(sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := j.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(v table.Value) any {
	switch v.Kind() {
	case table.NullKind:
		return nil
	case table.Time:
		return v.String()
	}
	return v.Any()
}

func tableRows(t *table.Table) [][]any {
	rows := make([][]any, 0, t.Nrow()+1)
	header := make([]any, t.Ncol())
	for i, n := range t.Names() {
		header[i] = n
	}
	rows = append(rows, header)
	for i := 0; i < t.Nrow(); i++ {
		vals := t.Row(i)
		row := make([]any, len(vals))
		for k, v := range vals {
			row[k] = cellValue(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func (j *XLSXJournal) record(name string, rows [][]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	sheet, err := j.addSheet(name)
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return j.writeRows(sheet, rows)
}

func (j *XLSXJournal) RecordRun(_ context.Context, run Run) error {
	return j.record("run", [][]any{
		{"run_id", run.RunID},
		{"created", run.Created.UTC().Format(time.RFC3339)},
		{"start", table.FormatTime(run.Start)},
		{"end", table.FormatTime(run.End)},
		{"date_column", run.DateColumn},
		{"features", strings.Join(run.Features, ",")},
		{"tickers", strings.Join(run.Tickers, ",")},
		{"failed", strings.Join(run.Failed, ",")},
	})
}

func (j *XLSXJournal) RecordCrossSection(_ context.Context, _ string, name string, t *table.Table) error {
	return j.record(name, tableRows(t))
}

func (j *XLSXJournal) RecordWeights(_ context.Context, _ string, w *portfolio.Weights) error {
	t, err := w.Table()
	if err != nil {
		return err
	}
	return j.record("portfolio", tableRows(t))
}

// Close saves the workbook.
func (j *XLSXJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.f.SaveAs(j.path); err != nil {
		j.f.Close()
		return fmt.Errorf("save %s: %w", j.path, err)
	}
	return j.f.Close()
}
