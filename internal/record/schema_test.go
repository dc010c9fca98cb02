package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTestSchema builds a simple schema used across tests.
func makeTestSchema() Schema {
	return Schema{
		Cols: []Column{
			{Name: "id", Type: ColInt64},
			{Name: "active", Type: ColBool},
			{Name: "score", Type: ColFloat64},
			{Name: "name", Type: ColText},
		},
	}
}

func TestCoerceRow_NormalizesNumbers(t *testing.T) {
	schema := makeTestSchema()

	row, err := CoerceRow(schema, []any{int32(42), true, float32(1.5), "hello"})
	require.NoError(t, err)

	require.Equal(t, int64(42), row[0])
	require.Equal(t, true, row[1])
	require.InDelta(t, 1.5, row[2].(float64), 1e-9)
	require.Equal(t, "hello", row[3])
}

func TestCoerce_IntegerIntoFloat(t *testing.T) {
	v, err := Coerce(ColFloat64, int64(3))
	require.NoError(t, err)
	require.Equal(t, 3.0, v)

	_, err = Coerce(ColInt64, 3.5)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCoerceRow_SchemaMismatch(t *testing.T) {
	schema := makeTestSchema()

	t.Run("wrong number of values", func(t *testing.T) {
		_, err := CoerceRow(schema, []any{1, true})
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("nil is not a value", func(t *testing.T) {
		_, err := CoerceRow(schema, []any{nil, true, 1.0, "x"})
		require.ErrorIs(t, err, ErrSchemaMismatch)
		require.Contains(t, err.Error(), "column id")
	})

	t.Run("wrong type for column", func(t *testing.T) {
		_, err := CoerceRow(schema, []any{int64(1), "yes", 1.0, "x"})
		require.ErrorIs(t, err, ErrSchemaMismatch)
		require.Contains(t, err.Error(), "column active")
	})

	t.Run("uint64 overflowing int64", func(t *testing.T) {
		_, err := Coerce(ColInt64, uint64(math.MaxUint64))
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})
}

func TestParseColumnType(t *testing.T) {
	cases := map[string]ColumnType{
		"int":     ColInt64,
		"INTEGER": ColInt64,
		"bigint":  ColInt64,
		"bool":    ColBool,
		"Boolean": ColBool,
		"double":  ColFloat64,
		"text":    ColText,
		"VARCHAR": ColText,
	}
	for in, want := range cases {
		got, err := ParseColumnType(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseColumnType("BLOB")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSchema_ColumnIndex(t *testing.T) {
	schema := makeTestSchema()
	require.Equal(t, 3, schema.ColumnIndex("name"))
	require.Equal(t, -1, schema.ColumnIndex("missing"))
	require.Equal(t, "FLOAT64", schema.Cols[2].Type.String())
	require.True(t, ColInt64.IsInteger())
	require.False(t, ColFloat64.IsInteger())
}
