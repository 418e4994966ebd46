package crosssection

import (
	"sort"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// SortByDate stable-sorts t by its (already normalized) Time date column and
// collapses repeated dates, keeping the first occurrence in input row order.
// It returns the number of rows dropped as duplicates.
func SortByDate(t *table.Table, dateColumn string) (*table.Table, int, error) {
	col, ok := t.Col(dateColumn)
	if !ok {
		return nil, 0, &SchemaError{Column: dateColumn, Reason: "date column is absent"}
	}
	if col.Kind() != table.Time {
		return nil, 0, &SchemaError{Column: dateColumn, Reason: "date column is not normalized"}
	}

	idx := make([]int, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) {
			idx = append(idx, i)
		}
	}
	at := func(i int) time.Time {
		ts, _ := col.Value(idx[i]).Time()
		return ts
	}
	sort.SliceStable(idx, func(a, b int) bool { return at(a).Before(at(b)) })

	kept := make([]int, 0, len(idx))
	var prev time.Time
	for i, row := range idx {
		ts := at(i)
		if len(kept) > 0 && ts.Equal(prev) {
			continue
		}
		kept = append(kept, row)
		prev = ts
	}
	dropped := col.Len() - len(kept) - col.NullCount()

	out, err := t.Take(kept)
	if err != nil {
		return nil, 0, err
	}
	return out, dropped, nil
}

// Project returns the two-column table (dateColumn, ticker) holding the
// feature's values for one ticker.
func Project(t *table.Table, dateColumn, feature, ticker string) (*table.Table, error) {
	if !t.Has(dateColumn) {
		return nil, &SchemaError{Ticker: ticker, Column: dateColumn, Reason: "date column is absent"}
	}
	if !t.Has(feature) {
		return nil, &FeatureNotFoundError{Ticker: ticker, Feature: feature}
	}
	if feature == dateColumn {
		return nil, &SchemaError{Ticker: ticker, Column: feature, Reason: "feature is the date column"}
	}
	sel, err := t.Select(dateColumn, feature)
	if err != nil {
		return nil, err
	}
	return sel.Rename(dateColumn, ticker)
}
