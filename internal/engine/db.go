package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
	"unicode"

	"github.com/tuannm99/novacol/internal/pivot"
	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/table"
)

var (
	ErrDatabaseClosed = errors.New("novacol: database is closed")
	ErrTableExists    = errors.New("novacol: table already exists")
	ErrTableNotFound  = errors.New("novacol: table not found")
	ErrInvalidName    = errors.New("novacol: invalid identifier")
	ErrUnknownColumn  = errors.New("novacol: unknown column")
)

type DatabaseOperation interface {
	CreateTable(name string, schema record.Schema) (*table.Table, error)
	OpenTable(name string) (*table.Table, error)
	DropTable(name string) error
	ListTables() ([]TableMeta, error)
	Pivot(req PivotRequest) (*table.Table, error)
	Close() error
}

type TableMeta struct {
	Name      string        `json:"name"`
	Schema    record.Schema `json:"schema"`
	RowCount  int           `json:"row_count"`
	CreatedAt time.Time     `json:"created_at"`
}

var _ DatabaseOperation = (*Database)(nil)

// Database is an in-memory catalog of named tables.
type Database struct {
	pivots *pivot.Engine
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*entry
	closed bool
}

type entry struct {
	tbl       *table.Table
	createdAt time.Time
}

// NewDatabase creates an empty catalog. A nil logger means slog.Default().
func NewDatabase(opts pivot.Options, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{
		pivots: pivot.NewEngine(opts, logger),
		logger: logger,
		tables: make(map[string]*entry),
	}
}

func (db *Database) CreateTable(name string, schema record.Schema) (*table.Table, error) {
	if err := validIdent(name); err != nil {
		return nil, err
	}
	for _, c := range schema.Cols {
		if err := validIdent(c.Name); err != nil {
			return nil, fmt.Errorf("column: %w", err)
		}
	}

	tbl, err := table.New(name, schema)
	if err != nil {
		return nil, err
	}
	if err := db.PutTable(tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// PutTable registers an already built table (loaded, or a pivot result)
// under tbl.Name.
func (db *Database) PutTable(tbl *table.Table) error {
	if err := validIdent(tbl.Name); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	if _, ok := db.tables[tbl.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTableExists, tbl.Name)
	}
	db.tables[tbl.Name] = &entry{tbl: tbl, createdAt: time.Now()}
	db.logger.Info("table registered", "table", tbl.Name, "cols", tbl.NumCols(), "rows", tbl.RowCount())
	return nil
}

func (db *Database) OpenTable(name string) (*table.Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	e, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return e.tbl, nil
}

func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	if _, ok := db.tables[name]; !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	delete(db.tables, name)
	db.logger.Info("table dropped", "table", name)
	return nil
}

// ListTables returns table metadata sorted by name.
func (db *Database) ListTables() ([]TableMeta, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrDatabaseClosed
	}
	out := make([]TableMeta, 0, len(db.tables))
	for name, e := range db.tables {
		out = append(out, TableMeta{
			Name:      name,
			Schema:    e.tbl.Schema(),
			RowCount:  e.tbl.RowCount(),
			CreatedAt: e.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PivotRequest addresses columns by name.
type PivotRequest struct {
	Table   string
	GroupBy string
	Value   string
	Kind    pivot.Kind
	// Into registers the result under this name when set.
	Into string
}

// Pivot resolves column names on the source table and runs the pivot
// engine. The source table is only read.
func (db *Database) Pivot(req PivotRequest) (*table.Table, error) {
	src, err := db.OpenTable(req.Table)
	if err != nil {
		return nil, err
	}

	schema := src.Schema()
	groupBy := schema.ColumnIndex(req.GroupBy)
	if groupBy < 0 {
		return nil, fmt.Errorf("%w: %w: %s.%s", pivot.ErrInvalidColumn, ErrUnknownColumn, req.Table, req.GroupBy)
	}
	value := schema.ColumnIndex(req.Value)
	if value < 0 {
		return nil, fmt.Errorf("%w: %w: %s.%s", pivot.ErrInvalidColumn, ErrUnknownColumn, req.Table, req.Value)
	}

	out, err := db.pivots.Pivot(src, groupBy, value, req.Kind)
	if err != nil {
		return nil, err
	}

	if req.Into != "" {
		out.Name = req.Into
		if err := db.PutTable(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true
	db.tables = nil
	return nil
}

// validIdent: first char letter or '_', rest letter/digit/'_'.
func validIdent(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return nil
}
