// Package table provides the in-memory tabular value passed between pipeline
// stages. A Table is an ordered column list plus rows keyed by column name.
//
// Stages treat their input as read-only: a stage that changes data calls
// Clone first and returns the clone. This keeps every stage a pure
// table-to-table function and lets the same input be re-run safely.
package table

import (
	"carprep/pkg/records"
)

// Table is an ordered set of columns and the rows that populate them. A
// column missing from a row's map is a missing value.
type Table struct {
	cols []string
	rows []records.Record
}

// New builds a Table. Duplicate column names are collapsed to their first
// occurrence. The rows slice is adopted, not copied.
func New(cols []string, rows []records.Record) *Table {
	seen := make(map[string]struct{}, len(cols))
	uniq := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	return &Table{cols: uniq, rows: rows}
}

// Empty returns a table with no columns and no rows.
func Empty() *Table { return &Table{} }

// Columns returns a copy of the column list in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// Has reports whether col is one of the table's columns.
func (t *Table) Has(col string) bool {
	for _, c := range t.cols {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns row i. Callers must not mutate it unless they own the table
// (i.e. obtained it from Clone).
func (t *Table) Row(i int) records.Record { return t.rows[i] }

// Rows returns the backing row slice. Same ownership rule as Row.
func (t *Table) Rows() []records.Record { return t.rows }

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	rows := make([]records.Record, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r.Clone()
	}
	return &Table{cols: t.Columns(), rows: rows}
}

// Column returns the values of col in row order. Missing cells are nil.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out
}

// AddColumn appends col to the column list if absent. Existing rows are not
// touched; they read as missing until set. Only valid on an owned table.
func (t *Table) AddColumn(col string) {
	if !t.Has(col) {
		t.cols = append(t.cols, col)
	}
}

// DropColumns removes the named columns from the column list and every row.
// Absent names are ignored. Only valid on an owned table.
func (t *Table) DropColumns(names ...string) {
	if len(names) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := t.cols[:0]
	for _, c := range t.cols {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	t.cols = kept
	for _, r := range t.rows {
		for n := range drop {
			delete(r, n)
		}
	}
}

// RenameColumn renames from to to in the column list and every row. When to
// already exists it is overwritten.
func (t *Table) RenameColumn(from, to string) {
	if from == to || !t.Has(from) {
		return
	}
	if t.Has(to) {
		t.DropColumns(to)
	}
	for i, c := range t.cols {
		if c == from {
			t.cols[i] = to
		}
	}
	for _, r := range t.rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

// Filter returns a new table that shares columns with t and keeps the rows
// for which keep returns true. Rows are shared, not copied.
func (t *Table) Filter(keep func(records.Record) bool) *Table {
	out := make([]records.Record, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{cols: t.Columns(), rows: out}
}

// Reorder returns a copy of t whose column list is cols. Row maps are shared.
func (t *Table) Reorder(cols []string) *Table {
	return &Table{cols: append([]string(nil), cols...), rows: t.rows}
}
