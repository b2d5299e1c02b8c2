// Package table holds the in-memory tract tables handed between analysis stages.
//
// A Table is an ordered set of named columns and rows of cells. Cells are nil
// (suppressed or missing), int64 counts, float64 derived values, strings, or
// geometries. Tables are treated as values: every operation returns a new Table
// and leaves its receiver untouched.
package table

import (
	"math"

	"github.com/rotisserie/eris"
)

// Row is one record of cells, positionally aligned with the table columns.
type Row []any

// Table is an immutable column-ordered table.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New builds a table from column names and rows. Rows are copied; every row
// must have exactly one cell per column and column names must be unique.
func New(columns []string, rows []Row) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, eris.Wrapf(ErrSchemaMismatch, "table: duplicate column %q", c)
		}
		index[c] = i
	}

	copied := make([]Row, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, eris.Wrapf(ErrSchemaMismatch, "table: row %d has %d cells, want %d", i, len(r), len(columns))
		}
		copied[i] = append(Row(nil), r...)
	}

	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return append(Row(nil), t.rows[i]...)
}

// Record returns a read-only view of row i.
func (t *Table) Record(i int) Record {
	return Record{t: t, row: t.rows[i]}
}

// Value returns the cell at row i, column name.
func (t *Table) Value(i int, column string) (any, error) {
	idx, ok := t.index[column]
	if !ok {
		return nil, eris.Wrapf(ErrMissingColumn, "table: %q", column)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, eris.Errorf("table: row %d out of range (%d rows)", i, len(t.rows))
	}
	return t.rows[i][idx], nil
}

// Filter returns the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{columns: t.columns, index: t.index}
	for _, r := range t.rows {
		if keep(Record{t: t, row: r}) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Where returns the rows whose string column equals value.
func (t *Table) Where(column, value string) (*Table, error) {
	if !t.Has(column) {
		return nil, eris.Wrapf(ErrMissingColumn, "table: where %q", column)
	}
	return t.Filter(func(r Record) bool {
		s, _ := r.Get(column).(string)
		return s == value
	}), nil
}

// WithColumn returns a table with column set to fn(row) for every row. An
// existing column of the same name is replaced in place; otherwise the column
// is appended.
func (t *Table) WithColumn(column string, fn func(Record) any) *Table {
	columns := t.Columns()
	idx, exists := t.index[column]
	if !exists {
		idx = len(columns)
		columns = append(columns, column)
	}

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		v := fn(Record{t: t, row: r})
		nr := make(Row, len(columns))
		copy(nr, r)
		nr[idx] = v
		rows[i] = nr
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Table{columns: columns, index: index, rows: rows}
}

// Record is a read-only view of a single row.
type Record struct {
	t   *Table
	row Row
}

// Get returns the cell for column, or nil when the column is absent.
func (r Record) Get(column string) any {
	idx, ok := r.t.index[column]
	if !ok {
		return nil
	}
	return r.row[idx]
}

// Int returns the cell as an integer count. ok is false for null cells.
func (r Record) Int(column string) (int64, bool) {
	return AsInt(r.Get(column))
}

// AsInt converts a numeric cell to int64. Non-integral floats, strings and nil
// report ok=false.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// AsFloat converts a numeric cell to float64. Nil and non-numeric cells report ok=false.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
