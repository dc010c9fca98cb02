package planner

import (
	"fmt"

	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/sql/parser"
)

// BuildPlan turns an AST statement into a plan. Type names and aggregation
// kinds are resolved here; table and column names are resolved at execution.
func BuildPlan(stmt parser.Statement) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return buildCreateTablePlan(s)
	case *parser.DropTableStmt:
		return &DropTablePlan{TableName: s.TableName}, nil
	case *parser.InsertStmt:
		return buildInsertPlan(s)
	case *parser.SelectStmt:
		return buildSelectPlan(s)
	case *parser.PivotStmt:
		return buildPivotPlan(s)
	case *parser.LoadStmt:
		return &LoadPlan{Path: s.Path, TableName: s.TableName}, nil
	case *parser.ShowTablesStmt:
		return &ShowTablesPlan{}, nil
	default:
		return nil, fmt.Errorf("planner: unsupported statement type %T", stmt)
	}
}

func buildCreateTablePlan(s *parser.CreateTableStmt) (Plan, error) {
	cols := make([]record.Column, 0, len(s.Columns))
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("planner: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}

		colType, err := record.ParseColumnType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("planner: column %s: %w", c.Name, err)
		}
		cols = append(cols, record.Column{Name: c.Name, Type: colType})
	}
	return &CreateTablePlan{
		TableName: s.TableName,
		Schema:    record.Schema{Cols: cols},
	}, nil
}

func buildInsertPlan(s *parser.InsertStmt) (Plan, error) {
	values := make([]any, len(s.Values))
	for i, expr := range s.Values {
		v, err := literal(expr)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return &InsertPlan{TableName: s.TableName, Values: values}, nil
}

func buildSelectPlan(s *parser.SelectStmt) (Plan, error) {
	p := &SeqScanPlan{TableName: s.TableName}
	if s.Where != nil {
		v, err := literal(s.Where.Value)
		if err != nil {
			return nil, err
		}
		p.Where = &WhereEq{Column: s.Where.Column, Value: v}
	}
	return p, nil
}

func buildPivotPlan(s *parser.PivotStmt) (Plan, error) {
	kind, err := pivot.ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}
	return &PivotPlan{Request: engine.PivotRequest{
		Table:   s.TableName,
		GroupBy: s.GroupBy,
		Value:   s.Value,
		Kind:    kind,
		Into:    s.Into,
	}}, nil
}

func literal(e parser.Expr) (any, error) {
	lit, ok := e.(*parser.LiteralExpr)
	if !ok {
		return nil, fmt.Errorf("planner: only literal expressions are supported, got %T", e)
	}
	return lit.Value, nil
}
