package dataset

import (
	"fmt"
	"slices"
)

// Column is a named, typed sequence of values.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Clone returns a copy with its own value slice.
func (c *Column) Clone() *Column {
	return &Column{Name: c.Name, Kind: c.Kind, Values: slices.Clone(c.Values)}
}

// Cell is one entry of a Row.
type Cell struct {
	Name  string
	Value Value
}

// Row is an ordered name→value view of a single record.
type Row []Cell

// Table is an ordered set of equal-length columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable returns an empty table with the given row count. Columns added
// later must match it.
func NewTable(rows int) *Table {
	if rows < 0 {
		rows = 0
	}
	return &Table{index: make(map[string]int), rows: rows}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Column returns the column called name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) Row {
	row := make(Row, len(t.columns))
	for c, col := range t.columns {
		row[c] = Cell{Name: col.Name, Value: col.Values[i]}
	}
	return row
}

// Value returns the cell at (row, name).
func (t *Table) Value(row int, name string) (Value, bool) {
	col, ok := t.Column(name)
	if !ok || row < 0 || row >= t.rows {
		return Value{}, false
	}
	return col.Values[row], true
}

// SetColumn appends col, or replaces the values of an existing column with
// the same name in place. The value count must equal the row count, except
// on a table without columns, which adopts the new column's length.
func (t *Table) SetColumn(col *Column) error {
	if col == nil || col.Name == "" {
		return validationf("set column", "", "column name is required")
	}
	if len(t.columns) == 0 && t.rows == 0 {
		t.rows = len(col.Values)
	}
	if len(col.Values) != t.rows {
		return validationf("set column", col.Name, "has %d values, table has %d rows", len(col.Values), t.rows)
	}
	for i, v := range col.Values {
		if !v.Fits(col.Kind) {
			return validationf("set column", col.Name, "row %d holds a value that does not fit a %s column", i, col.Kind)
		}
	}
	if i, ok := t.index[col.Name]; ok {
		t.columns[i] = col
		return nil
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// Drop removes the named columns that exist and returns them in table order.
func (t *Table) Drop(names ...string) []string {
	if len(names) == 0 {
		return nil
	}
	remove := make(map[string]struct{}, len(names))
	for _, n := range names {
		remove[n] = struct{}{}
	}
	var dropped []string
	kept := t.columns[:0]
	for _, col := range t.columns {
		if _, ok := remove[col.Name]; ok {
			dropped = append(dropped, col.Name)
			continue
		}
		kept = append(kept, col)
	}
	clear(t.columns[len(kept):])
	t.columns = kept
	t.reindex()
	return dropped
}

// Rename changes a column's name.
func (t *Table) Rename(oldName, newName string) error {
	i, ok := t.index[oldName]
	if !ok {
		return validationf("rename", oldName, "no such column")
	}
	if oldName == newName {
		return nil
	}
	if _, taken := t.index[newName]; taken {
		return validationf("rename", newName, "already exists")
	}
	t.columns[i].Name = newName
	delete(t.index, oldName)
	t.index[newName] = i
	return nil
}

// Permute reorders columns to match order, which must name every column
// exactly once.
func (t *Table) Permute(order []string) error {
	if len(order) != len(t.columns) {
		return validationf("permute", "", "order names %d columns, table has %d", len(order), len(t.columns))
	}
	next := make([]*Column, 0, len(order))
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		i, ok := t.index[name]
		if !ok {
			return validationf("permute", name, "no such column")
		}
		if _, dup := seen[name]; dup {
			return validationf("permute", name, "named twice")
		}
		seen[name] = struct{}{}
		next = append(next, t.columns[i])
	}
	t.columns = next
	t.reindex()
	return nil
}

// KeepRows retains the rows for which keep returns true and returns the new
// row count.
func (t *Table) KeepRows(keep func(row int) bool) int {
	mask := make([]bool, t.rows)
	kept := 0
	for r := 0; r < t.rows; r++ {
		if keep(r) {
			mask[r] = true
			kept++
		}
	}
	if kept == t.rows {
		return kept
	}
	for _, col := range t.columns {
		values := make([]Value, 0, kept)
		for r, v := range col.Values {
			if mask[r] {
				values = append(values, v)
			}
		}
		col.Values = values
	}
	t.rows = kept
	return kept
}

// Append adds other's rows after this table's rows. Columns are matched by
// name; both tables must hold the same names with the same kinds.
func (t *Table) Append(other *Table) error {
	if len(other.columns) != len(t.columns) {
		return validationf("append", "", "tables have %d and %d columns", len(t.columns), len(other.columns))
	}
	for _, col := range t.columns {
		src, ok := other.Column(col.Name)
		if !ok {
			return validationf("append", col.Name, "missing from appended table")
		}
		if src.Kind != col.Kind {
			return validationf("append", col.Name, "kind %s does not match %s", src.Kind, col.Kind)
		}
	}
	for _, col := range t.columns {
		src, _ := other.Column(col.Name)
		col.Values = append(col.Values, src.Values...)
	}
	t.rows += other.rows
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}
	for i, col := range t.columns {
		out.columns[i] = col.Clone()
		out.index[col.Name] = i
	}
	return out
}

func (t *Table) reindex() {
	clear(t.index)
	for i, col := range t.columns {
		t.index[col.Name] = i
	}
}

// String summarises the table shape.
func (t *Table) String() string {
	return fmt.Sprintf("table(%d rows x %d columns)", t.rows, len(t.columns))
}
