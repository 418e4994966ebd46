package crosssection

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// dateLayouts are tried in order when a date column arrives as text.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"20060102",
}

// DateRange is a closed [Start, End] interval of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both bounds to calendar days and rejects End before Start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: NormalizeDate(start), End: NormalizeDate(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("date range end %s is before start %s",
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	return r, nil
}

// Contains reports whether the calendar day of t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := NormalizeDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// NormalizeDate maps t to midnight UTC of the calendar day t falls on in its
// own location, so 2020-01-02T23:00-05:00 and 2020-01-02 compare equal.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses s with the accepted date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// NormalizeDateColumn returns the date column as a Time column of calendar days.
// Text columns are parsed; any other kind is a SchemaError.
func NormalizeDateColumn(t *table.Table, dateColumn string) (*table.Column, error) {
	col, ok := t.Col(dateColumn)
	if !ok {
		return nil, &SchemaError{Column: dateColumn, Reason: "date column is absent"}
	}

	vals := make([]table.Value, col.Len())
	switch col.Kind() {
	case table.Time:
		for i := range vals {
			if ts, ok := col.Value(i).Time(); ok {
				vals[i] = table.T(NormalizeDate(ts))
			}
		}
	case table.String:
		for i := range vals {
			s, ok := col.Value(i).Str()
			if !ok || strings.TrimSpace(s) == "" {
				continue
			}
			ts, err := ParseDate(s)
			if err != nil {
				return nil, &SchemaError{Column: dateColumn, Reason: fmt.Sprintf("row %d: %v", i, err)}
			}
			vals[i] = table.T(NormalizeDate(ts))
		}
	default:
		return nil, &SchemaError{Column: dateColumn, Reason: fmt.Sprintf("%s column is not a date", col.Kind())}
	}
	return table.NewColumn(dateColumn, table.Time, vals)
}

// FilterRange keeps the rows whose date falls within r, with the date column
// normalized to calendar days. Rows with a null date are dropped. The input is
// not modified, and filtering an already filtered table is a no-op.
func FilterRange(t *table.Table, dateColumn string, r DateRange) (*table.Table, error) {
	dates, err := NormalizeDateColumn(t, dateColumn)
	if err != nil {
		return nil, err
	}
	normalized, err := t.WithColumn(dates)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, dates.Len())
	for i := range mask {
		if ts, ok := dates.Value(i).Time(); ok {
			mask[i] = r.Contains(ts)
		}
	}
	return normalized.Filter(mask)
}
