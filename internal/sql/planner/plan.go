package planner

import (
	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/record"
)

// Plan is the interface for executable plans.
type Plan interface {
	planNode()
}

// ----- Plan nodes -----

type CreateTablePlan struct {
	TableName string
	Schema    record.Schema
}

func (*CreateTablePlan) planNode() {}

type DropTablePlan struct {
	TableName string
}

func (*DropTablePlan) planNode() {}

type InsertPlan struct {
	TableName string
	Values    []any // raw literals; coerced against the schema on insert
}

func (*InsertPlan) planNode() {}

type SeqScanPlan struct {
	TableName string
	Where     *WhereEq
}

func (*SeqScanPlan) planNode() {}

type WhereEq struct {
	Column string
	Value  any
}

type PivotPlan struct {
	Request engine.PivotRequest
}

func (*PivotPlan) planNode() {}

type LoadPlan struct {
	Path      string
	TableName string
}

func (*LoadPlan) planNode() {}

type ShowTablesPlan struct{}

func (*ShowTablesPlan) planNode() {}
