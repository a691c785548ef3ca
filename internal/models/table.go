package models

import "sort"

// Table is an ordered set of rows sharing a column list, the unit boards
// return and the pipeline passes between stages.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table from rows. Known columns come first in allowlist
// order, any others follow sorted by name.
func NewTable(rows []Row) Table {
	t := Table{Rows: rows}
	seen := make(map[string]bool)
	for _, c := range Allowlist {
		for _, r := range rows {
			if _, ok := r[c]; ok {
				t.Columns = append(t.Columns, c)
				seen[c] = true
				break
			}
		}
	}
	var extra []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	t.Columns = append(t.Columns, extra...)
	return t
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries column.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// SetColumn assigns value to column on every row, adding the column if needed.
func (t *Table) SetColumn(column string, value any) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
	for _, r := range t.Rows {
		r[column] = value
	}
}

// Concat appends tables in order. The result's columns are the union of the
// inputs' columns in first-seen order; rows keep only the keys they had.
func Concat(tables ...Table) Table {
	var out Table
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// Records returns the rows restricted to columns, with absent keys set to nil.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = r[c]
		}
		out = append(out, rec)
	}
	return out
}
