// Package loader fills column-store tables from CSV input.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tuannm99/novacol/internal/record"
	"github.com/tuannm99/novacol/internal/table"
)

var (
	ErrNoHeader    = errors.New("loader: missing header row")
	ErrHeaderWidth = errors.New("loader: header does not match schema")
	ErrBadCell     = errors.New("loader: cell does not parse as column type")
)

type Options struct {
	// Schema fixes column types. Nil infers one type per column from the
	// data: INT64, then BOOL, then FLOAT64, else TEXT.
	Schema *record.Schema
	// Comma is the field delimiter; 0 means ','.
	Comma  rune
	Logger *slog.Logger
}

// LoadFile opens path and loads it with LoadCSV.
func LoadFile(path, name string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return LoadCSV(f, name, opts)
}

// LoadCSV reads a header row followed by data rows into a new table.
func LoadCSV(r io.Reader, name string, opts Options) (*table.Table, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header, rows := records[0], records[1:]

	var schema record.Schema
	if opts.Schema != nil {
		schema = *opts.Schema
		if schema.NumCols() != len(header) {
			return nil, fmt.Errorf("%w: %d header fields, %d columns", ErrHeaderWidth, len(header), schema.NumCols())
		}
	} else {
		schema = inferSchema(header, rows)
	}

	tbl, err := table.NewWithCapacity(name, schema, len(rows))
	if err != nil {
		return nil, err
	}

	values := make([]any, schema.NumCols())
	for i, row := range rows {
		for c, col := range schema.Cols {
			v, err := parseCell(col.Type, row[c])
			if err != nil {
				// +2: header line and 1-based line numbers.
				return nil, fmt.Errorf("line %d, column %s: %w", i+2, col.Name, err)
			}
			values[c] = v
		}
		if _, err := tbl.Insert(values); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
	}

	logger.Info("csv loaded",
		"table", name,
		"rows", tbl.RowCount(),
		"cols", schema.NumCols(),
		"elapsed", time.Since(start),
	)
	return tbl, nil
}

func inferSchema(header []string, rows [][]string) record.Schema {
	cols := make([]record.Column, len(header))
	for c, h := range header {
		cols[c] = record.Column{
			Name: strings.TrimSpace(h),
			Type: detectType(rows, c),
		}
	}
	return record.Schema{Cols: cols}
}

// detectType picks the narrowest type every cell of column c parses as.
// A column with no data rows is TEXT.
func detectType(rows [][]string, c int) record.ColumnType {
	if len(rows) == 0 {
		return record.ColText
	}
	for _, typ := range []record.ColumnType{record.ColInt64, record.ColBool, record.ColFloat64} {
		ok := true
		for _, row := range rows {
			if _, err := parseCell(typ, row[c]); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return typ
		}
	}
	return record.ColText
}

// parseCell converts one cell. Numeric and bool cells ignore surrounding
// space; TEXT cells are kept verbatim.
func parseCell(typ record.ColumnType, raw string) (any, error) {
	if typ == record.ColText {
		return raw, nil
	}
	s := strings.TrimSpace(raw)
	switch typ {
	case record.ColInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not %s", ErrBadCell, s, typ)
		}
		return v, nil
	case record.ColBool:
		switch strings.ToLower(s) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not %s", ErrBadCell, s, typ)
	case record.ColFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not %s", ErrBadCell, s, typ)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %s", record.ErrUnsupportedType, typ)
	}
}
