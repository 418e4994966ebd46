package table

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch  = errors.New("column length mismatch")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrColumnNotFound  = errors.New("column not found")
)

// Table is an ordered set of equally long, uniquely named columns.
// Tables are never modified in place; every operation returns a new Table.
type Table struct {
	cols  []*Column
	index map[string]int
	nrows int
}

// New builds a table from cols. All columns must have the same length and distinct names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if i == 0 {
			t.nrows = c.Len()
		} else if c.Len() != t.nrows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.Name(), c.Len(), t.nrows)
		}
		if _, ok := t.index[c.Name()]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name())
		}
		t.index[c.Name()] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Nrow() int { return t.nrows }
func (t *Table) Ncol() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name()
	}
	return names
}

// Col looks a column up by name.
func (t *Table) Col(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Col(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Rename replaces every column name, positionally.
func (t *Table) Rename(names ...string) (*Table, error) {
	if len(names) != len(t.cols) {
		return nil, fmt.Errorf("rename: got %d names for %d columns", len(names), len(t.cols))
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Renamed(names[i])
	}
	return New(cols...)
}

// RenameColumn renames a single column.
func (t *Table) RenameColumn(oldName, newName string) (*Table, error) {
	i, ok := t.index[oldName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, oldName)
	}
	names := t.Names()
	names[i] = newName
	return t.Rename(names...)
}

// Filter keeps the rows where mask is true.
func (t *Table) Filter(mask []bool) (*Table, error) {
	if len(mask) != t.nrows {
		return nil, fmt.Errorf("%w: mask has %d entries for %d rows", ErrLengthMismatch, len(mask), t.nrows)
	}
	idx := make([]int, 0, t.nrows)
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return t.Take(idx)
}

// Take returns the rows at idx, in that order. Indices may repeat.
func (t *Table) Take(idx []int) (*Table, error) {
	for _, i := range idx {
		if i < 0 || i >= t.nrows {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", i, t.nrows)
		}
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.Take(idx)
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		out.nrows = len(idx)
	}
	return out, nil
}

// WithColumn replaces the column of the same name, or appends c when there is none.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.nrows {
		return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.Name(), c.Len(), t.nrows)
	}
	cols := t.Columns()
	if i, ok := t.index[c.Name()]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.Value(i)
	}
	return row
}

// Equal reports whether both tables have the same columns, kinds and cells.
func (t *Table) Equal(o *Table) bool {
	if t.nrows != o.nrows || len(t.cols) != len(o.cols) {
		return false
	}
	for i, c := range t.cols {
		oc := o.cols[i]
		if c.Name() != oc.Name() || c.kind != oc.kind {
			return false
		}
		for r := 0; r < c.Len(); r++ {
			if !c.Value(r).Equal(oc.Value(r)) {
				return false
			}
		}
	}
	return true
}
