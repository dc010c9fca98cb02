// Package novacol is the top-level facade for the novacol column store:
// an in-memory catalog of columnar tables with a pivot (group-by
// aggregation) engine.
package novacol

import (
	"log/slog"

	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/table"
)

type (
	Database     = engine.Database
	TableMeta    = engine.TableMeta
	PivotRequest = engine.PivotRequest
	Table        = table.Table
	Schema       = record.Schema
	Column       = record.Column
	ColumnType   = record.ColumnType
	Kind         = pivot.Kind
	Options      = pivot.Options
)

const (
	Int64   = record.ColInt64
	Bool    = record.ColBool
	Float64 = record.ColFloat64
	Text    = record.ColText

	Count   = pivot.Count
	Sum     = pivot.Sum
	Average = pivot.Average
	Min     = pivot.Min
	Max     = pivot.Max
)

// Open returns an empty in-memory database. A nil logger means slog.Default().
func Open(opts Options, logger *slog.Logger) *Database {
	return engine.NewDatabase(opts, logger)
}

// Pivot groups src by a TEXT column and aggregates the value column,
// one output row per distinct key in first-seen order.
func Pivot(src *Table, groupBy, value int, kind Kind) (*Table, error) {
	return pivot.Pivot(src, groupBy, value, kind)
}
