package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/sql/parser"
)

func TestBuildPlan_CreateTable(t *testing.T) {
	stmt := &parser.CreateTableStmt{
		TableName: "staff",
		Columns: []parser.ColumnDef{
			{Name: "sex", Type: "TEXT"},
			{Name: "age", Type: "INT"},
			{Name: "hired", Type: "BOOL"},
			{Name: "rate", Type: "DOUBLE"},
		},
	}

	p, err := BuildPlan(stmt)
	require.NoError(t, err)

	plan, ok := p.(*CreateTablePlan)
	require.True(t, ok, "want *CreateTablePlan, got %T", p)
	require.Equal(t, "staff", plan.TableName)
	require.Equal(t, []record.Column{
		{Name: "sex", Type: record.ColText},
		{Name: "age", Type: record.ColInt64},
		{Name: "hired", Type: record.ColBool},
		{Name: "rate", Type: record.ColFloat64},
	}, plan.Schema.Cols)
}

func TestBuildPlan_CreateTable_Rejects(t *testing.T) {
	_, err := BuildPlan(&parser.CreateTableStmt{
		TableName: "t",
		Columns:   []parser.ColumnDef{{Name: "a", Type: "BLOB"}},
	})
	require.ErrorIs(t, err, record.ErrUnsupportedType)

	_, err = BuildPlan(&parser.CreateTableStmt{
		TableName: "t",
		Columns:   []parser.ColumnDef{{Name: "a", Type: "INT"}, {Name: "a", Type: "TEXT"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate column")
}

func TestBuildPlan_InsertAndSelect(t *testing.T) {
	p, err := BuildPlan(&parser.InsertStmt{
		TableName: "staff",
		Values:    []parser.Expr{&parser.LiteralExpr{Value: "Male"}, &parser.LiteralExpr{Value: int64(20)}},
	})
	require.NoError(t, err)
	require.Equal(t, &InsertPlan{TableName: "staff", Values: []any{"Male", int64(20)}}, p)

	p, err = BuildPlan(&parser.SelectStmt{TableName: "staff"})
	require.NoError(t, err)
	require.Equal(t, &SeqScanPlan{TableName: "staff"}, p)

	p, err = BuildPlan(&parser.SelectStmt{
		TableName: "staff",
		Where:     &parser.WhereEq{Column: "sex", Value: &parser.LiteralExpr{Value: "Female"}},
	})
	require.NoError(t, err)
	require.Equal(t, &WhereEq{Column: "sex", Value: "Female"}, p.(*SeqScanPlan).Where)
}

func TestBuildPlan_Pivot(t *testing.T) {
	p, err := BuildPlan(&parser.PivotStmt{
		TableName: "staff", GroupBy: "sex", Value: "age", Kind: "AVERAGE", Into: "avg_age",
	})
	require.NoError(t, err)
	require.Equal(t, &PivotPlan{Request: engine.PivotRequest{
		Table: "staff", GroupBy: "sex", Value: "age", Kind: pivot.Average, Into: "avg_age",
	}}, p)

	_, err = BuildPlan(&parser.PivotStmt{TableName: "staff", GroupBy: "sex", Value: "age", Kind: "MEDIAN"})
	require.ErrorIs(t, err, pivot.ErrUnknownKind)
}

func TestBuildPlan_LoadAndShow(t *testing.T) {
	p, err := BuildPlan(&parser.LoadStmt{Path: "staff.csv", TableName: "staff"})
	require.NoError(t, err)
	require.Equal(t, &LoadPlan{Path: "staff.csv", TableName: "staff"}, p)

	p, err = BuildPlan(&parser.ShowTablesStmt{})
	require.NoError(t, err)
	require.IsType(t, &ShowTablesPlan{}, p)

	_, err = BuildPlan(&parser.DropTableStmt{TableName: "staff"})
	require.NoError(t, err)
}
