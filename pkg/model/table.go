// pkg/model/table.go
package model

import (
	"fmt"
	"slices"
)

// View is read-only access to an ordered set of rows sharing one schema.
// Both Table and Subset implement it; aggregation and export accept any View.
type View interface {
	Schema() Schema
	Len() int
	Row(i int) Row
}

// Row is a read-only handle on one record of a Table
type Row struct {
	index  int
	schema Schema
	cells  []Cell
}

// Index returns the row's position in its source table. It is the row identity
// used by remediation edits and is preserved through filtering.
func (r Row) Index() int {
	return r.index
}

// Get returns the cell for a column, or missing if the column does not exist
func (r Row) Get(column string) Cell {
	i, ok := r.schema.Index(column)
	if !ok {
		return Missing()
	}
	return r.cells[i]
}

// Has reports whether the row's schema has the column
func (r Row) Has(column string) bool {
	return r.schema.Has(column)
}

// Text returns the string form of a column value ("" when missing)
func (r Row) Text(column string) string {
	return r.Get(column).String()
}

// Cells returns a copy of the row's cells in schema order
func (r Row) Cells() []Cell {
	return slices.Clone(r.cells)
}

// Map returns the row keyed by column name
func (r Row) Map() map[string]Cell {
	m := make(map[string]Cell, len(r.cells))
	for i, name := range r.schema.columns {
		m[name] = r.cells[i]
	}
	return m
}

// Table is an owned, rectangular sequence of rows.
// Every row has exactly Schema().Len() cells.
type Table struct {
	schema Schema
	rows   [][]Cell
}

// NewTable creates an empty table for the given schema
func NewTable(schema Schema) *Table {
	return &Table{schema: schema}
}

// Append adds a row. The cell count must match the schema.
func (t *Table) Append(cells []Cell) error {
	if len(cells) != t.schema.Len() {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(cells), t.schema.Len())
	}
	t.rows = append(t.rows, slices.Clone(cells))
	return nil
}

// Schema returns the table schema
func (t *Table) Schema() Schema {
	return t.schema
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at position i
func (t *Table) Row(i int) Row {
	return Row{index: i, schema: t.schema, cells: t.rows[i]}
}

// Set writes a single cell. It is the only mutation path on a Table.
func (t *Table) Set(i int, column string, value Cell) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d out of range [0,%d)", i, len(t.rows))
	}
	col, ok := t.schema.Index(column)
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	t.rows[i][col] = value
	return nil
}

// Clone returns a deep copy that shares no row storage with t
func (t *Table) Clone() *Table {
	rows := make([][]Cell, len(t.rows))
	for i, r := range t.rows {
		rows[i] = slices.Clone(r)
	}
	return &Table{schema: t.schema, rows: rows}
}

// Lookup resolves a ResourceID to a row index.
// It fails when the ID is absent or appears on more than one row.
func (t *Table) Lookup(resourceID string) (int, bool) {
	col, ok := t.schema.Index(ColResourceID)
	if !ok || resourceID == "" {
		return -1, false
	}
	found := -1
	for i, r := range t.rows {
		if r[col].String() != resourceID {
			continue
		}
		if found >= 0 {
			return -1, false
		}
		found = i
	}
	return found, found >= 0
}

// Equal reports whether two tables have the same schema and cell values
func (t *Table) Equal(other *Table) bool {
	if !t.schema.Equal(other.schema) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.EqualFunc(t.rows[i], other.rows[i], Cell.Equal) {
			return false
		}
	}
	return true
}

// Subset is a projection of a source view onto selected row positions.
// It holds no cells of its own and offers no mutation.
type Subset struct {
	source  View
	indices []int
}

// NewSubset builds a projection over positions of source, in the given order
func NewSubset(source View, positions []int) *Subset {
	return &Subset{source: source, indices: positions}
}

// Schema returns the source schema
func (s *Subset) Schema() Schema {
	return s.source.Schema()
}

// Len returns the number of selected rows
func (s *Subset) Len() int {
	return len(s.indices)
}

// Row returns the i-th selected row; its Index is the source row identity
func (s *Subset) Row(i int) Row {
	return s.source.Row(s.indices[i])
}

// Indices returns the row identities in the subset
func Indices(v View) []int {
	out := make([]int, v.Len())
	for i := range out {
		out[i] = v.Row(i).Index()
	}
	return out
}
