package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tuannm99/novacol/internal/record"
)

var (
	ErrIndexOutOfBounds = errors.New("table: index out of bounds")
	ErrTypeMismatch     = errors.New("table: column type mismatch")
	ErrDuplicateColumn  = errors.New("table: duplicate column name")
	ErrNotEmpty         = errors.New("table: cannot add column to a populated table")
)

// Reader is the positional read contract of a table.
type Reader interface {
	Schema() record.Schema
	RowCount() int
	ColumnType(col int) (record.ColumnType, error)
	GetString(col, row int) (string, error)
	GetInt64(col, row int) (int64, error)
	GetBool(col, row int) (bool, error)
	GetFloat64(col, row int) (float64, error)
}

var (
	_ Reader = (*Table)(nil)
	_ Reader = snapshot{}
)

// Table is an append-only in-memory column store: one typed vector per
// column, all vectors of equal length.
type Table struct {
	Name string

	mu     sync.RWMutex
	schema record.Schema
	cols   []vector
	rows   int
}

// New creates an empty table for schema.
func New(name string, schema record.Schema) (*Table, error) {
	return NewWithCapacity(name, schema, 0)
}

// NewWithCapacity is New with every column preallocated for capacity rows.
func NewWithCapacity(name string, schema record.Schema, capacity int) (*Table, error) {
	t := &Table{Name: name}
	for _, c := range schema.Cols {
		if err := t.addColumn(c.Type, c.Name, capacity); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column to the schema and returns its index.
// Columns can only be added while the table is empty.
func (t *Table) AddColumn(typ record.ColumnType, name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.rows > 0 {
		return -1, ErrNotEmpty
	}
	if err := t.addColumn(typ, name, 0); err != nil {
		return -1, err
	}
	return len(t.cols) - 1, nil
}

func (t *Table) addColumn(typ record.ColumnType, name string, capacity int) error {
	if t.schema.ColumnIndex(name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	vec, err := newVector(typ, capacity)
	if err != nil {
		return err
	}
	t.schema.Cols = append(t.schema.Cols, record.Column{Name: name, Type: typ})
	t.cols = append(t.cols, vec)
	return nil
}

// Insert appends one row and returns its row index. The whole row is
// validated before any column is touched.
func (t *Table) Insert(values []any) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, err := record.CoerceRow(t.schema, values)
	if err != nil {
		return -1, err
	}
	for i, v := range row {
		t.cols[i].push(v)
	}
	t.rows++
	return t.rows - 1, nil
}

// Schema returns a copy of the table schema.
func (t *Table) Schema() record.Schema {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.Schema()
}

func (t *Table) NumCols() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cols)
}

func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

func (t *Table) ColumnType(col int) (record.ColumnType, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.ColumnType(col)
}

func (t *Table) ColumnName(col int) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if col < 0 || col >= len(t.cols) {
		return "", fmt.Errorf("%w: column %d of %d", ErrIndexOutOfBounds, col, len(t.cols))
	}
	return t.schema.Cols[col].Name, nil
}

func (t *Table) GetString(col, row int) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.GetString(col, row)
}

func (t *Table) GetInt64(col, row int) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.GetInt64(col, row)
}

func (t *Table) GetBool(col, row int) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.GetBool(col, row)
}

func (t *Table) GetFloat64(col, row int) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshot{t}.GetFloat64(col, row)
}

// Get reads a single row.
func (t *Table) Get(row int) ([]any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("%w: row %d of %d", ErrIndexOutOfBounds, row, t.rows)
	}
	return t.rowLocked(row), nil
}

func (t *Table) rowLocked(row int) []any {
	out := make([]any, len(t.cols))
	for i, vec := range t.cols {
		out[i] = vec.Value(row)
	}
	return out
}

// Scan iterates every row in insertion order under the read lock.
// fn must not call back into the table's write methods.
func (t *Table) Scan(fn func(row int, values []any) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for r := 0; r < t.rows; r++ {
		if err := fn(r, t.rowLocked(r)); err != nil {
			return err
		}
	}
	return nil
}

// Rows materializes every row. Handy for results and tests.
func (t *Table) Rows() [][]any {
	var out [][]any
	_ = t.Scan(func(_ int, values []any) error {
		out = append(out, values)
		return nil
	})
	return out
}

// View runs fn against a lock-free Reader while holding the read lock, so
// fn observes one stable row count. Appends wait until fn returns.
func (t *Table) View(fn func(r Reader) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(snapshot{t})
}

// snapshot reads the table without taking the lock; the caller holds it.
type snapshot struct{ t *Table }

func (s snapshot) Schema() record.Schema {
	cols := make([]record.Column, len(s.t.schema.Cols))
	copy(cols, s.t.schema.Cols)
	return record.Schema{Cols: cols}
}

func (s snapshot) RowCount() int { return s.t.rows }

func (s snapshot) ColumnType(col int) (record.ColumnType, error) {
	if col < 0 || col >= len(s.t.cols) {
		return 0, fmt.Errorf("%w: column %d of %d", ErrIndexOutOfBounds, col, len(s.t.cols))
	}
	return s.t.cols[col].Type(), nil
}

func (s snapshot) vector(col, row int, want record.ColumnType) (vector, error) {
	typ, err := s.ColumnType(col)
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, fmt.Errorf("%w: column %d is %s, not %s", ErrTypeMismatch, col, typ, want)
	}
	if row < 0 || row >= s.t.rows {
		return nil, fmt.Errorf("%w: row %d of %d", ErrIndexOutOfBounds, row, s.t.rows)
	}
	return s.t.cols[col], nil
}

func (s snapshot) GetString(col, row int) (string, error) {
	vec, err := s.vector(col, row, record.ColText)
	if err != nil {
		return "", err
	}
	return vec.(*textVector).vals[row], nil
}

func (s snapshot) GetInt64(col, row int) (int64, error) {
	vec, err := s.vector(col, row, record.ColInt64)
	if err != nil {
		return 0, err
	}
	return vec.(*int64Vector).vals[row], nil
}

func (s snapshot) GetBool(col, row int) (bool, error) {
	vec, err := s.vector(col, row, record.ColBool)
	if err != nil {
		return false, err
	}
	return vec.(*boolVector).vals[row], nil
}

func (s snapshot) GetFloat64(col, row int) (float64, error) {
	vec, err := s.vector(col, row, record.ColFloat64)
	if err != nil {
		return 0, err
	}
	return vec.(*float64Vector).vals[row], nil
}
