package dataset

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownColumn = errors.New("unknown column")

// Row 一行数据，列名到标量值
type Row map[string]any

// Table 行式数据表
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable builds a table from rows. When columns is empty the column set is
// the sorted union of all row keys.
func NewTable(columns []string, rows []Row) *Table {
	if len(columns) == 0 {
		seen := make(map[string]struct{})
		for _, row := range rows {
			for key := range row {
				if _, ok := seen[key]; !ok {
					seen[key] = struct{}{}
					columns = append(columns, key)
				}
			}
		}
		sort.Strings(columns)
	}
	return &Table{Columns: columns, Rows: rows}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Column returns every value of one column in row order.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values, nil
}

// Project keeps only the named columns, in the given order.
func (t *Table) Project(columns ...string) (*Table, error) {
	for _, col := range columns {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
	}
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		projected := make(Row, len(columns))
		for _, col := range columns {
			projected[col] = row[col]
		}
		rows[i] = projected
	}
	return &Table{Columns: append([]string(nil), columns...), Rows: rows}, nil
}

// Drop removes the named columns.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, col := range columns {
		drop[col] = true
	}
	kept := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		if !drop[col] {
			kept = append(kept, col)
		}
	}
	projected, _ := t.Project(kept...)
	return projected
}
