package executor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuannm99/novacol/internal/engine"
	"github.com/tuannm99/novacol/internal/loader"
	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/sql/parser"
	"github.com/tuannm99/novacol/internal/sql/planner"
	"github.com/tuannm99/novacol/internal/table"
)

// executorDB is the catalog surface the executor needs.
type executorDB interface {
	engine.DatabaseOperation
	PutTable(tbl *table.Table) error
}

var _ executorDB = (*engine.Database)(nil)

// Executor executes plans against a Database.
type Executor struct {
	DB executorDB

	// Loader configures LOAD statements; Schema is ignored.
	Loader loader.Options
	logger *slog.Logger
}

func NewExecutor(db executorDB, loadOpts loader.Options) *Executor {
	logger := loadOpts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loadOpts.Schema = nil
	loadOpts.Logger = logger
	return &Executor{DB: db, Loader: loadOpts, logger: logger}
}

// ExecSQL is the top-level entry: statement text -> Result.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	start := time.Now()

	stmt, err := parser.Parse(sql)
	if err != nil {
		e.logger.Debug("statement rejected", "err", err)
		return nil, err
	}
	plan, err := planner.BuildPlan(stmt)
	if err != nil {
		e.logger.Debug("statement rejected", "err", err)
		return nil, err
	}

	res, err := e.execPlan(plan)
	if err != nil {
		e.logger.Debug("statement failed", "plan", fmt.Sprintf("%T", plan), "err", err)
		return nil, err
	}
	e.logger.Debug("statement executed",
		"plan", fmt.Sprintf("%T", plan),
		"rows", len(res.Rows),
		"affected", res.AffectedRows,
		"elapsed", time.Since(start),
	)
	return res, nil
}

func (e *Executor) execPlan(p planner.Plan) (*Result, error) {
	switch plan := p.(type) {
	case *planner.CreateTablePlan:
		return e.execCreateTable(plan)
	case *planner.DropTablePlan:
		return e.execDropTable(plan)
	case *planner.InsertPlan:
		return e.execInsert(plan)
	case *planner.SeqScanPlan:
		return e.execSeqScan(plan)
	case *planner.PivotPlan:
		return e.execPivot(plan)
	case *planner.LoadPlan:
		return e.execLoad(plan)
	case *planner.ShowTablesPlan:
		return e.execShowTables()
	default:
		return nil, fmt.Errorf("executor: unsupported plan type %T", p)
	}
}

func (e *Executor) execCreateTable(p *planner.CreateTablePlan) (*Result, error) {
	if _, err := e.DB.CreateTable(p.TableName, p.Schema); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) execDropTable(p *planner.DropTablePlan) (*Result, error) {
	if err := e.DB.DropTable(p.TableName); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (e *Executor) execInsert(p *planner.InsertPlan) (*Result, error) {
	tbl, err := e.DB.OpenTable(p.TableName)
	if err != nil {
		return nil, err
	}
	if _, err := tbl.Insert(p.Values); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", p.TableName, err)
	}
	return &Result{AffectedRows: 1}, nil
}

func (e *Executor) execSeqScan(p *planner.SeqScanPlan) (*Result, error) {
	tbl, err := e.DB.OpenTable(p.TableName)
	if err != nil {
		return nil, err
	}
	schema := tbl.Schema()

	pos, want := -1, any(nil)
	if p.Where != nil {
		pos = schema.ColumnIndex(p.Where.Column)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %s.%s", engine.ErrUnknownColumn, p.TableName, p.Where.Column)
		}
		if want, err = record.Coerce(schema.Cols[pos].Type, p.Where.Value); err != nil {
			return nil, fmt.Errorf("where %s: %w", p.Where.Column, err)
		}
	}

	res := &Result{Columns: columnNames(schema)}
	err = tbl.Scan(func(_ int, row []any) error {
		if pos >= 0 && row[pos] != want {
			return nil
		}
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}

func (e *Executor) execPivot(p *planner.PivotPlan) (*Result, error) {
	out, err := e.DB.Pivot(p.Request)
	if err != nil {
		return nil, err
	}
	return tableResult(out), nil
}

func (e *Executor) execLoad(p *planner.LoadPlan) (*Result, error) {
	tbl, err := loader.LoadFile(p.Path, p.TableName, e.Loader)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Path, err)
	}
	if err := e.DB.PutTable(tbl); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: int64(tbl.RowCount())}, nil
}

func (e *Executor) execShowTables() (*Result, error) {
	metas, err := e.DB.ListTables()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: []string{"name", "rows", "columns"}}
	for _, m := range metas {
		defs := make([]string, len(m.Schema.Cols))
		for i, c := range m.Schema.Cols {
			defs[i] = c.Name + " " + c.Type.String()
		}
		res.Rows = append(res.Rows, []any{m.Name, int64(m.RowCount), strings.Join(defs, ", ")})
	}
	res.AffectedRows = int64(len(res.Rows))
	return res, nil
}

func tableResult(tbl *table.Table) *Result {
	rows := tbl.Rows()
	return &Result{
		Columns:      columnNames(tbl.Schema()),
		Rows:         rows,
		AffectedRows: int64(len(rows)),
	}
}

func columnNames(s record.Schema) []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}
