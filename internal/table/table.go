// Package table implements the uniform result table assembled from provider
// pages: an ordered column schema plus rows of typed cells.
//
// Cells hold string, int64, float64, bool, or nil for null.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaConflict is returned when rows or tables do not fit a schema.
var ErrSchemaConflict = errors.New("schema conflict")

// Kind is the type of a column.
type Kind int

const (
	// Unknown marks a column whose every value seen so far is null. It is
	// resolved by the first non-null value appended.
	Unknown Kind = iota
	String
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of columns. A nil Schema means "not declared".
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Equal tests two schemas for exact equality, including column order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of s that is safe to modify.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return append(Schema(nil), s...)
}

func (s Schema) String() string {
	fields := make([]string, len(s))
	for i, c := range s {
		fields[i] = fmt.Sprintf("%s: %s", c.Name, c.Kind)
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// Table is a set of rows conforming to a single schema.
type Table struct {
	schema Schema
	rows   [][]any
	// widen is set on tables whose schema was inferred rather than
	// declared; their Int columns turn Float when a fractional value
	// arrives.
	widen bool
}

// New creates an empty table with the given schema.
func New(schema Schema) *Table {
	return &Table{schema: schema.Clone()}
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() Schema { return t.schema.Clone() }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.rows) == 0 }

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Value returns the cell at row i of the named column. Unknown columns read
// as null.
func (t *Table) Value(i int, column string) any {
	j := t.schema.Index(column)
	if j < 0 {
		return nil
	}
	return t.rows[i][j]
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]any, error) {
	j := t.schema.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("table: no column %q", name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// AppendRow appends one row given in schema order.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.schema) {
		return fmt.Errorf("%w: row has %d values, schema has %d columns", ErrSchemaConflict, len(values), len(t.schema))
	}
	row := make([]any, len(values))
	for j, v := range values {
		c, err := t.accept(j, v)
		if err != nil {
			return err
		}
		row[j] = c
	}
	t.rows = append(t.rows, row)
	return nil
}

// Set overwrites one cell.
func (t *Table) Set(i int, column string, v any) error {
	j := t.schema.Index(column)
	if j < 0 {
		return fmt.Errorf("table: no column %q", column)
	}
	c, err := t.accept(j, v)
	if err != nil {
		return err
	}
	t.rows[i][j] = c
	return nil
}

// FillNull replaces every null in the named column with v.
func (t *Table) FillNull(column string, v any) error {
	j := t.schema.Index(column)
	if j < 0 {
		return fmt.Errorf("table: no column %q", column)
	}
	c, err := t.accept(j, v)
	if err != nil {
		return err
	}
	for _, r := range t.rows {
		if r[j] == nil {
			r[j] = c
		}
	}
	return nil
}

// VStack appends the rows of o, preserving their order. An undeclared,
// empty t adopts the schema of o. Otherwise the column names must match in
// order and the kinds must agree; Unknown columns take the other side's kind.
func (t *Table) VStack(o *Table) error {
	if o == nil {
		return nil
	}
	if t.schema == nil && len(t.rows) == 0 {
		t.schema = o.schema.Clone()
		t.widen = o.widen
	}
	if len(t.schema) != len(o.schema) {
		return fmt.Errorf("%w: cannot stack %v onto %v", ErrSchemaConflict, o.schema, t.schema)
	}
	merged := t.schema.Clone()
	for j := range merged {
		a, b := merged[j], o.schema[j]
		if a.Name != b.Name {
			return fmt.Errorf("%w: column %d is %q, other table has %q", ErrSchemaConflict, j, a.Name, b.Name)
		}
		numeric := (a.Kind == Int && b.Kind == Float) || (a.Kind == Float && b.Kind == Int)
		switch {
		case a.Kind == b.Kind, b.Kind == Unknown:
		case a.Kind == Unknown:
			merged[j].Kind = b.Kind
		case numeric && (t.widen || o.widen):
			merged[j].Kind = Float
		default:
			return fmt.Errorf("%w: column %q is %s, other table has %s", ErrSchemaConflict, a.Name, a.Kind, b.Kind)
		}
	}
	for j := range merged {
		if merged[j].Kind == Float && t.schema[j].Kind == Int {
			t.floatColumn(j)
		}
	}
	t.schema = merged
	for _, r := range o.rows {
		row := append([]any(nil), r...)
		for j, c := range row {
			if i, ok := c.(int64); ok && merged[j].Kind == Float {
				row[j] = float64(i)
			}
		}
		t.rows = append(t.rows, row)
	}
	t.widen = t.widen || o.widen
	return nil
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := New(t.schema)
	out.widen = t.widen
	for i, r := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]any(nil), r...))
		}
	}
	return out
}

// accept checks v against column j, resolving an Unknown column kind.
func (t *Table) accept(j int, v any) (any, error) {
	col := t.schema[j]
	if v == nil {
		return nil, nil
	}
	if col.Kind == Unknown {
		k, err := kindOf(col.Name, v)
		if err != nil {
			return nil, err
		}
		t.schema[j].Kind = k
		col.Kind = k
	}
	if col.Kind == Int && t.widen {
		if k, _ := kindOf(col.Name, v); k == Float {
			t.floatColumn(j)
			col.Kind = Float
		}
	}
	return coerce(col, v)
}

// floatColumn turns Int column j into a Float column, converting the cells
// already stored.
func (t *Table) floatColumn(j int) {
	t.schema[j].Kind = Float
	for _, r := range t.rows {
		if i, ok := r[j].(int64); ok {
			r[j] = float64(i)
		}
	}
}
