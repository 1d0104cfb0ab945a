package table

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Record is one decoded JSON object. Numbers should be json.Number
// (json.Decoder.UseNumber) so integer columns survive decoding.
type Record = map[string]any

// FromRecords builds a table from records. With a declared schema every
// record is projected onto it: missing keys become null and keys outside
// the schema are ignored. With a nil schema the schema is inferred from the
// records themselves (see Infer) and its Int columns may later widen to
// Float.
func FromRecords(records []Record, schema Schema) (*Table, error) {
	if schema == nil {
		inferred, err := Infer(records)
		if err != nil {
			return nil, err
		}
		return build(records, inferred, false, true)
	}
	return build(records, schema, false, false)
}

// Conform builds a table from records that must fit schema exactly: a key
// outside the schema or a value of the wrong kind is a conflict. It is used
// for pages following the one a schema was inferred from, so an Int column
// receiving a fractional number widens to Float instead of conflicting.
func Conform(records []Record, schema Schema) (*Table, error) {
	return build(records, schema, true, true)
}

// Infer derives a schema from records. Columns are the union of all keys,
// sorted by name; each column takes the kind of its first non-null value and
// every later value must agree, except that integers and fractional numbers
// together make a Float column. Columns that are null throughout stay
// Unknown.
func Infer(records []Record) (Schema, error) {
	kinds := make(map[string]Kind)
	for _, rec := range records {
		for name, v := range rec {
			prev, seen := kinds[name]
			if v == nil {
				if !seen {
					kinds[name] = Unknown
				}
				continue
			}
			k, err := kindOf(name, v)
			if err != nil {
				return nil, err
			}
			switch {
			case !seen, prev == Unknown:
				kinds[name] = k
			case prev == Int && k == Float, prev == Float && k == Int:
				kinds[name] = Float
			case prev != k:
				return nil, fmt.Errorf("%w: column %q holds both %s and %s values", ErrSchemaConflict, name, prev, k)
			}
		}
	}
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	schema := make(Schema, len(names))
	for i, name := range names {
		schema[i] = Column{Name: name, Kind: kinds[name]}
	}
	return schema, nil
}

func build(records []Record, schema Schema, strict, widen bool) (*Table, error) {
	t := New(schema)
	t.widen = widen
	if t.schema == nil {
		t.schema = Schema{}
	}
	for n, rec := range records {
		if strict {
			for name := range rec {
				if t.schema.Index(name) < 0 {
					return nil, fmt.Errorf("%w: record %d has column %q not in %v", ErrSchemaConflict, n, name, t.schema)
				}
			}
		}
		row := make([]any, len(t.schema))
		for j, col := range t.schema {
			v, err := t.accept(j, rec[col.Name])
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			row[j] = v
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// kindOf reports the column kind a raw value naturally belongs to.
func kindOf(column string, v any) (Kind, error) {
	switch x := v.(type) {
	case string:
		return String, nil
	case bool:
		return Bool, nil
	case int, int32, int64:
		return Int, nil
	case float32, float64:
		return Float, nil
	case json.Number:
		if strings.ContainsAny(x.String(), ".eE") {
			return Float, nil
		}
		return Int, nil
	default:
		return Unknown, fmt.Errorf("%w: column %q has unsupported value %v (%T)", ErrSchemaConflict, column, v, v)
	}
}

// coerce converts v into the canonical cell type of col. Integers widen
// into float columns; integral floats narrow into int columns. Anything
// else is a conflict.
func coerce(col Column, v any) (any, error) {
	conflict := func() (any, error) {
		return nil, fmt.Errorf("%w: column %q is %s, got %v (%T)", ErrSchemaConflict, col.Name, col.Kind, v, v)
	}
	switch col.Kind {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Int:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		case json.Number:
			if i, err := x.Int64(); err == nil {
				return i, nil
			}
			if f, err := x.Float64(); err == nil && f == math.Trunc(f) {
				return int64(f), nil
			}
		}
	case Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, nil
			}
		}
	}
	return conflict()
}
