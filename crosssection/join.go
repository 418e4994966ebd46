package crosssection

import (
	"container/heap"
	"context"
	"time"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/table"
)

// panel is an intermediate wide table: ascending unique dates and one value
// slice per ticker column. cols holds positions in the assembly's ticker list.
type panel struct {
	dates []time.Time
	cols  []int
	vals  [][]table.Value
	seq   int
}

func (p *panel) rows() int { return len(p.dates) }

// newPanel converts a projected (date, ticker) table with unique ascending dates.
func newPanel(t *table.Table, dateColumn string, pos, seq int) *panel {
	dates, _ := t.Col(dateColumn)
	names := t.Names()
	values, _ := t.Col(names[1])

	p := &panel{
		dates: make([]time.Time, t.Nrow()),
		cols:  []int{pos},
		vals:  [][]table.Value{values.Values()},
		seq:   seq,
	}
	for i := range p.dates {
		p.dates[i], _ = dates.Value(i).Time()
	}
	return p
}

// outerJoin merges two panels on date. Rows missing on one side keep null
// cells for that side's columns. Both inputs must be sorted and unique.
func outerJoin(left, right *panel) *panel {
	n := unionSize(left.dates, right.dates)
	out := &panel{
		dates: make([]time.Time, 0, n),
		cols:  make([]int, 0, len(left.cols)+len(right.cols)),
		vals:  make([][]table.Value, 0, len(left.cols)+len(right.cols)),
		seq:   min(left.seq, right.seq),
	}
	out.cols = append(append(out.cols, left.cols...), right.cols...)
	for range out.cols {
		out.vals = append(out.vals, make([]table.Value, n))
	}
	nl := len(left.cols)

	i, j := 0, 0
	for i < len(left.dates) || j < len(right.dates) {
		k := len(out.dates)
		switch {
		case j >= len(right.dates) || (i < len(left.dates) && left.dates[i].Before(right.dates[j])):
			out.dates = append(out.dates, left.dates[i])
			copyRow(out.vals[:nl], left.vals, k, i)
			i++
		case i >= len(left.dates) || right.dates[j].Before(left.dates[i]):
			out.dates = append(out.dates, right.dates[j])
			copyRow(out.vals[nl:], right.vals, k, j)
			j++
		default:
			out.dates = append(out.dates, left.dates[i])
			copyRow(out.vals[:nl], left.vals, k, i)
			copyRow(out.vals[nl:], right.vals, k, j)
			i++
			j++
		}
	}
	return out
}

func copyRow(dst, src [][]table.Value, to, from int) {
	for c := range src {
		dst[c][to] = src[c][from]
	}
}

func unionSize(a, b []time.Time) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Before(b[j]):
			i++
		case b[j].Before(a[i]):
			j++
		default:
			i++
			j++
		}
		n++
	}
	return n + (len(a) - i) + (len(b) - j)
}

// panelHeap orders pending panels by row count, then by input position.
type panelHeap []*panel

func (h panelHeap) Len() int { return len(h) }
func (h panelHeap) Less(i, j int) bool {
	if h[i].rows() != h[j].rows() {
		return h[i].rows() < h[j].rows()
	}
	return h[i].seq < h[j].seq
}
func (h panelHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *panelHeap) Push(x any)   { *h = append(*h, x.(*panel)) }
func (h *panelHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// accumulate folds the panels into one by repeatedly merging the two smallest,
// joining the smaller into the larger. The result does not depend on the
// order of the input because column positions are fixed up front and the
// final column order is restored by finalize.
func accumulate(ctx context.Context, panels []*panel) (*panel, error) {
	switch len(panels) {
	case 0:
		return nil, nil
	case 1:
		return panels[0], nil
	}

	h := make(panelHeap, len(panels))
	copy(h, panels)
	heap.Init(&h)
	for h.Len() > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		small := heap.Pop(&h).(*panel)
		large := heap.Pop(&h).(*panel)
		heap.Push(&h, outerJoin(large, small))
	}
	return h[0], nil
}

// finalize lays the accumulated panel out as the output table: the date
// column first, then one column per ticker in input order. Tickers absent
// from the panel get all-null columns.
func finalize(acc *panel, dateColumn string, tickers []string, kinds []table.Kind) (*table.Table, error) {
	n := 0
	if acc != nil {
		n = acc.rows()
	}

	dates := make([]table.Value, n)
	for i := 0; i < n; i++ {
		dates[i] = table.T(acc.dates[i])
	}
	dc, err := table.NewColumn(dateColumn, table.Time, dates)
	if err != nil {
		return nil, err
	}

	byPos := make(map[int][]table.Value)
	if acc != nil {
		for c, pos := range acc.cols {
			byPos[pos] = acc.vals[c]
		}
	}

	cols := make([]*table.Column, 0, len(tickers)+1)
	cols = append(cols, dc)
	for pos, name := range tickers {
		vals, ok := byPos[pos]
		if !ok {
			cols = append(cols, table.NullColumn(name, kinds[pos], n))
			continue
		}
		c, err := table.NewColumn(name, kinds[pos], vals)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}
