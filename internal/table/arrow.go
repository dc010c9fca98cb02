package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tuannm99/novacol/internal/record"
)

// ArrowType maps a column type onto its Arrow equivalent.
func ArrowType(t record.ColumnType) (arrow.DataType, error) {
	switch t {
	case record.ColInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case record.ColBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case record.ColFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case record.ColText:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("%w: %s", record.ErrUnsupportedType, t)
	}
}

// ArrowSchema builds the Arrow schema of the table. Columns are never null.
func (t *Table) ArrowSchema() (*arrow.Schema, error) {
	return arrowSchema(t.Schema())
}

func arrowSchema(schema record.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, schema.NumCols())
	for _, c := range schema.Cols {
		dt, err := ArrowType(c.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, arrow.Field{Name: c.Name, Type: dt, Nullable: false})
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToArrow copies the table into a single Arrow record batch.
// The caller owns the record and must Release it.
func (t *Table) ToArrow(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	schema, err := arrowSchema(snapshot{t}.Schema())
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, vec := range t.cols {
		switch v := vec.(type) {
		case *int64Vector:
			b.Field(i).(*array.Int64Builder).AppendValues(v.vals, nil)
		case *boolVector:
			b.Field(i).(*array.BooleanBuilder).AppendValues(v.vals, nil)
		case *float64Vector:
			b.Field(i).(*array.Float64Builder).AppendValues(v.vals, nil)
		case *textVector:
			b.Field(i).(*array.StringBuilder).AppendValues(v.vals, nil)
		default:
			return nil, fmt.Errorf("%w: %s", record.ErrUnsupportedType, vec.Type())
		}
	}
	return b.NewRecord(), nil
}
