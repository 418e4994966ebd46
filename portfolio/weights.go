package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/crosssection"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// TickerColumn heads the ticker column of Weights.Table.
const TickerColumn = "Ticker"

// Weights is a ticker x date allocation matrix. Values[i][j] is the weight of
// Tickers[i] effective on Dates[j].
type Weights struct {
	Tickers []string
	Dates   []time.Time
	Values  [][]decimal.Decimal
}

// Weight looks up one cell.
func (w *Weights) Weight(ticker string, date time.Time) (decimal.Decimal, bool) {
	i := indexOf(w.Tickers, ticker)
	if i < 0 {
		return decimal.Zero, false
	}
	date = crosssection.NormalizeDate(date)
	for j, d := range w.Dates {
		if d.Equal(date) {
			return w.Values[i][j], true
		}
	}
	return decimal.Zero, false
}

// Total sums the weights of one date column.
func (w *Weights) Total(j int) decimal.Decimal {
	sum := decimal.Zero
	for i := range w.Tickers {
		sum = sum.Add(w.Values[i][j])
	}
	return sum
}

// Table renders the matrix with one row per ticker and one column per date.
func (w *Weights) Table() (*table.Table, error) {
	cols := make([]*table.Column, 0, len(w.Dates)+1)
	names := make([]table.Value, len(w.Tickers))
	for i, t := range w.Tickers {
		names[i] = table.S(t)
	}
	tc, err := table.NewColumn(TickerColumn, table.String, names)
	if err != nil {
		return nil, err
	}
	cols = append(cols, tc)

	for j, d := range w.Dates {
		vals := make([]table.Value, len(w.Tickers))
		for i := range w.Tickers {
			vals[i] = table.F(w.Values[i][j].InexactFloat64())
		}
		c, err := table.NewColumn(table.FormatTime(d), table.Float, vals)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}

// EqualWeights builds the top-N equal-weight portfolio. On every signal row
// whose date is a rebalance date and has a non-empty universe, the eligible
// tickers with a signal are ranked descending and the best topN get 1/topN,
// everyone else 0. Weights take effect on the following row's date; a
// rebalance on the last row has nowhere to land and is skipped.
func EqualWeights(signals *table.Table, universe map[time.Time]map[string]bool, rebalance map[time.Time]bool, dateColumn string, topN int) (*Weights, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top n must be positive, got %d", topN)
	}
	dates, err := dateValues(signals, dateColumn)
	if err != nil {
		return nil, err
	}

	var tickers []*table.Column
	for _, c := range signals.Columns() {
		if c.Name() != dateColumn {
			tickers = append(tickers, c)
		}
	}

	w := &Weights{Tickers: make([]string, len(tickers)), Values: make([][]decimal.Decimal, len(tickers))}
	for i, c := range tickers {
		w.Tickers[i] = c.Name()
	}
	weight := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(topN)))

	type ranked struct {
		idx    int
		signal float64
	}
	for row, d := range dates {
		if d.IsZero() || !rebalance[d] {
			continue
		}
		eligible := universe[d]
		if len(eligible) == 0 {
			continue
		}
		if row+1 >= len(dates) || dates[row+1].IsZero() {
			continue
		}

		var cands []ranked
		for i, c := range tickers {
			if !eligible[c.Name()] {
				continue
			}
			if s, ok := c.Value(row).Float(); ok {
				cands = append(cands, ranked{idx: i, signal: s})
			}
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].signal > cands[b].signal })
		if len(cands) > topN {
			cands = cands[:topN]
		}

		selected := make(map[int]bool, len(cands))
		for _, c := range cands {
			selected[c.idx] = true
		}
		w.Dates = append(w.Dates, dates[row+1])
		for i := range tickers {
			v := decimal.Zero
			if selected[i] {
				v = weight
			}
			w.Values[i] = append(w.Values[i], v)
		}
	}
	return w, nil
}

func indexOf(xs []string, x string) int {
	for i, s := range xs {
		if s == x {
			return i
		}
	}
	return -1
}
