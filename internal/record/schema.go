package record

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type ColumnType uint8

const (
	ColInt64 ColumnType = iota
	ColBool
	ColFloat64
	ColText // UTF-8
)

var (
	ErrSchemaMismatch  = errors.New("record: schema/values mismatch")
	ErrUnsupportedType = errors.New("record: unsupported column type")
)

func (t ColumnType) String() string {
	switch t {
	case ColInt64:
		return "INT64"
	case ColBool:
		return "BOOL"
	case ColFloat64:
		return "FLOAT64"
	case ColText:
		return "TEXT"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// IsInteger reports whether values of this type support integer arithmetic.
func (t ColumnType) IsInteger() bool { return t == ColInt64 }

// ParseColumnType maps a SQL-ish type name to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INT", "INTEGER", "INT64", "BIGINT":
		return ColInt64, nil
	case "BOOL", "BOOLEAN":
		return ColBool, nil
	case "FLOAT", "FLOAT64", "DOUBLE", "REAL":
		return ColFloat64, nil
	case "TEXT", "STRING", "VARCHAR":
		return ColText, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type Schema struct {
	Cols []Column `json:"cols"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColumnIndex returns the position of the named column, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// Coerce converts v into the canonical Go type stored for t:
// int64, bool, float64 or string.
func Coerce(t ColumnType, v any) (any, error) {
	switch t {
	case ColInt64:
		if x, ok := asInt64(v); ok {
			return x, nil
		}
	case ColBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case ColFloat64:
		if x, ok := asFloat64(v); ok {
			return x, nil
		}
	case ColText:
		if x, ok := v.(string); ok {
			return x, nil
		}
	default:
		return nil, ErrUnsupportedType
	}
	return nil, fmt.Errorf("%w: %s expects %s, got %T", ErrSchemaMismatch, t, t, v)
}

// CoerceRow validates arity and coerces every value against the schema.
func CoerceRow(s Schema, values []any) ([]any, error) {
	if len(values) != s.NumCols() {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrSchemaMismatch, len(values), s.NumCols())
	}
	out := make([]any, len(values))
	for i, col := range s.Cols {
		v, err := Coerce(col.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// ---- small helpers to accept multiple numeric types ----
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
