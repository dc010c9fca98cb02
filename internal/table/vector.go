package table

import (
	"fmt"

	"github.com/tuannm99/novacol/internal/record"
)

// vector is a single typed column. Values passed to push are already
// coerced by record.Coerce, so the type assertions cannot fail.
type vector interface {
	Type() record.ColumnType
	Value(row int) any
	push(v any)
}

func newVector(t record.ColumnType, capacity int) (vector, error) {
	switch t {
	case record.ColInt64:
		return &int64Vector{vals: make([]int64, 0, capacity)}, nil
	case record.ColBool:
		return &boolVector{vals: make([]bool, 0, capacity)}, nil
	case record.ColFloat64:
		return &float64Vector{vals: make([]float64, 0, capacity)}, nil
	case record.ColText:
		return &textVector{vals: make([]string, 0, capacity)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", record.ErrUnsupportedType, t)
	}
}

type int64Vector struct{ vals []int64 }

func (v *int64Vector) Type() record.ColumnType { return record.ColInt64 }
func (v *int64Vector) Value(row int) any       { return v.vals[row] }
func (v *int64Vector) push(x any)              { v.vals = append(v.vals, x.(int64)) }

type boolVector struct{ vals []bool }

func (v *boolVector) Type() record.ColumnType { return record.ColBool }
func (v *boolVector) Value(row int) any       { return v.vals[row] }
func (v *boolVector) push(x any)              { v.vals = append(v.vals, x.(bool)) }

type float64Vector struct{ vals []float64 }

func (v *float64Vector) Type() record.ColumnType { return record.ColFloat64 }
func (v *float64Vector) Value(row int) any       { return v.vals[row] }
func (v *float64Vector) push(x any)              { v.vals = append(v.vals, x.(float64)) }

type textVector struct{ vals []string }

func (v *textVector) Type() record.ColumnType { return record.ColText }
func (v *textVector) Value(row int) any       { return v.vals[row] }
func (v *textVector) push(x any)              { v.vals = append(v.vals, x.(string)) }
