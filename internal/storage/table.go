package storage

import (
	"fmt"

	"github.com/SimonWaldherr/tinycol/internal/sqlerr"
)

// Table owns a schema and one column per schema entry, in schema order.
type Table struct {
	Name    string
	schema  *Schema
	cols    []*Column
	rows    int
	Version int
}

func newTable(name string, schema *Schema, pool *TextPool) *Table {
	cols := make([]*Column, schema.Len())
	for i := range cols {
		cols[i] = newColumn(schema.Column(i), pool)
	}
	return &Table{Name: name, schema: schema, cols: cols}
}

// Schema returns the table schema.
func (t *Table) Schema() *Schema { return t.schema }

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// Column returns the i-th column.
func (t *Table) Column(i int) *Column { return t.cols[i] }

// ColIndex returns the zero-based index of the named column.
func (t *Table) ColIndex(name string) (int, error) {
	i, ok := t.schema.Index(name)
	if !ok {
		return -1, sqlerr.Execf("unknown column %q on table %q", name, t.Name)
	}
	return i, nil
}

// Value returns the value of column col at row i.
func (t *Table) Value(i, col int) Value { return t.cols[col].Get(i) }

// Row assembles row i from column storage.
func (t *Table) Row(i int) Row {
	out := make(Row, len(t.cols))
	for c, col := range t.cols {
		out[c] = col.Get(i)
	}
	return out
}

// Project assembles the listed columns of row i.
func (t *Table) Project(i int, cols []int) Row {
	out := make(Row, len(cols))
	for j, c := range cols {
		out[j] = t.cols[c].Get(i)
	}
	return out
}

// AppendRow adds one full row in schema order. Every value is validated
// before any column is touched.
func (t *Table) AppendRow(row Row) error {
	if len(row) != len(t.cols) {
		return sqlerr.Execf("table %q has %d columns, got %d values", t.Name, len(t.cols), len(row))
	}
	for i, v := range row {
		if err := t.cols[i].Check(v); err != nil {
			return err
		}
	}
	for i, v := range row {
		if err := t.cols[i].Append(v); err != nil {
			// Check passed above, so this is a broken invariant.
			panic(fmt.Sprintf("storage: append after check: %v", err))
		}
	}
	t.rows++
	t.Version++
	return nil
}

// CellUpdate is one pending write of an UPDATE statement.
type CellUpdate struct {
	Row   int
	Col   int
	Value Value
}

// ApplyUpdates writes all cells or none: every update is validated first.
func (t *Table) ApplyUpdates(updates []CellUpdate) error {
	for _, u := range updates {
		if u.Row < 0 || u.Row >= t.rows {
			return sqlerr.Execf("row %d out of range", u.Row)
		}
		if u.Col < 0 || u.Col >= len(t.cols) {
			return sqlerr.Execf("column %d out of range", u.Col)
		}
		if err := t.cols[u.Col].Check(u.Value); err != nil {
			return err
		}
	}
	for _, u := range updates {
		if err := t.cols[u.Col].Set(u.Row, u.Value); err != nil {
			panic(fmt.Sprintf("storage: set after check: %v", err))
		}
	}
	if len(updates) > 0 {
		t.Version++
	}
	return nil
}

// Compact keeps only the rows at the ascending indices in keep, preserving
// their relative order, and returns the number of removed rows.
func (t *Table) Compact(keep []int) int {
	removed := t.rows - len(keep)
	if removed == 0 {
		return 0
	}
	for _, c := range t.cols {
		c.compact(keep)
	}
	t.rows = len(keep)
	t.Version++
	return removed
}
