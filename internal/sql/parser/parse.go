package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var ErrSyntax = errors.New("parser: syntax error")

// Parse parses a single statement into an AST.
// Statements MUST end with ';'.
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	if s == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	}
	if !strings.HasSuffix(s, ";") {
		return nil, fmt.Errorf("%w: missing ';' terminator", ErrSyntax)
	}
	s = collapseSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrSyntax)
	}

	up := strings.ToUpper(s)
	switch {
	case hasKeyword(up, "CREATE TABLE"):
		return parseCreateTable(s)
	case hasKeyword(up, "DROP TABLE"):
		return parseDropTable(s)
	case hasKeyword(up, "INSERT INTO"):
		return parseInsert(s)
	case hasKeyword(up, "SELECT"):
		return parseSelect(s)
	case hasKeyword(up, "PIVOT"):
		return parsePivot(s)
	case hasKeyword(up, "LOAD"):
		return parseLoad(s)
	case strings.Join(strings.Fields(up), " ") == "SHOW TABLES":
		return &ShowTablesStmt{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported statement %q", ErrSyntax, sql)
	}
}

// hasKeyword reports whether up starts with kw followed by whitespace or
// the end of input.
func hasKeyword(up, kw string) bool {
	if !strings.HasPrefix(up, kw) {
		return false
	}
	rest := up[len(kw):]
	return rest == "" || unicode.IsSpace(rune(rest[0])) || rest[0] == '('
}

// parseIdent validates a table or column name:
//   - exactly one token
//   - first char: letter or '_'
//   - rest: letter/digit/'_'
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing identifier")
	}

	parts := strings.Fields(s)
	if len(parts) != 1 {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	id := parts[0]

	for i, r := range id {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return "", fmt.Errorf("invalid identifier %q", id)
	}
	return id, nil
}

func parseCreateTable(sql string) (Statement, error) {
	// "CREATE TABLE staff (sex TEXT, age INT64)"
	rest := strings.TrimSpace(sql[len("CREATE TABLE"):])
	open := strings.Index(rest, "(")
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return nil, fmt.Errorf("%w: CREATE TABLE needs a column list", ErrSyntax)
	}

	tableName, err := parseIdent(rest[:open])
	if err != nil {
		return nil, fmt.Errorf("%w: CREATE TABLE: %v", ErrSyntax, err)
	}

	defPart := strings.TrimSpace(rest[open+1 : len(rest)-1])
	if defPart == "" {
		return nil, fmt.Errorf("%w: CREATE TABLE: empty column list", ErrSyntax)
	}

	var cols []ColumnDef
	for _, def := range strings.Split(defPart, ",") {
		toks := strings.Fields(def)
		if len(toks) != 2 {
			return nil, fmt.Errorf("%w: invalid column def %q", ErrSyntax, strings.TrimSpace(def))
		}
		colName, err := parseIdent(toks[0])
		if err != nil {
			return nil, fmt.Errorf("%w: column name: %v", ErrSyntax, err)
		}
		cols = append(cols, ColumnDef{Name: colName, Type: strings.ToUpper(toks[1])})
	}

	return &CreateTableStmt{TableName: tableName, Columns: cols}, nil
}

func parseDropTable(sql string) (Statement, error) {
	name, err := parseIdent(sql[len("DROP TABLE"):])
	if err != nil {
		return nil, fmt.Errorf("%w: DROP TABLE: %v", ErrSyntax, err)
	}
	return &DropTableStmt{TableName: name}, nil
}

func parseInsert(sql string) (Statement, error) {
	// "INSERT INTO staff VALUES ('Male', 20)"
	rest := strings.TrimSpace(sql[len("INSERT INTO"):])
	tablePart, valPart := splitKeyword(rest, "VALUES")
	if valPart == "" {
		return nil, fmt.Errorf("%w: INSERT needs VALUES", ErrSyntax)
	}

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, fmt.Errorf("%w: INSERT: %v", ErrSyntax, err)
	}

	if !strings.HasPrefix(valPart, "(") || !strings.HasSuffix(valPart, ")") {
		return nil, fmt.Errorf("%w: INSERT values must be parenthesized", ErrSyntax)
	}
	valPart = strings.TrimSpace(valPart[1 : len(valPart)-1])
	if valPart == "" {
		return nil, fmt.Errorf("%w: INSERT: empty value list", ErrSyntax)
	}

	var exprs []Expr
	for _, rv := range splitComma(valPart) {
		lit, err := parseLiteral(strings.TrimSpace(rv))
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, &LiteralExpr{Value: lit})
	}

	return &InsertStmt{TableName: tableName, Values: exprs}, nil
}

func parseSelect(sql string) (Statement, error) {
	// "SELECT * FROM staff [WHERE sex = 'Male']"
	toks := strings.Fields(sql)
	if len(toks) < 4 || toks[1] != "*" || !strings.EqualFold(toks[2], "FROM") {
		return nil, fmt.Errorf("%w: only SELECT * FROM <table> is supported", ErrSyntax)
	}

	fromIdx := strings.Index(strings.ToUpper(sql), "FROM")
	rest := strings.TrimSpace(sql[fromIdx+len("FROM"):])
	tablePart, wherePart := splitKeyword(rest, "WHERE")

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, fmt.Errorf("%w: SELECT: %v", ErrSyntax, err)
	}

	var w *WhereEq
	if wherePart != "" {
		if w, err = parseWhereEq(wherePart); err != nil {
			return nil, err
		}
	}
	return &SelectStmt{TableName: tableName, Where: w}, nil
}

func parsePivot(sql string) (Statement, error) {
	// "PIVOT staff BY sex ON age USING MIN [INTO youngest]"
	rest := strings.TrimSpace(sql[len("PIVOT"):])

	tablePart, rest := splitKeyword(rest, "BY")
	groupPart, rest := splitKeyword(rest, "ON")
	valuePart, rest := splitKeyword(rest, "USING")
	kindPart, intoPart := splitKeyword(rest, "INTO")
	if rest == "" {
		return nil, fmt.Errorf("%w: expected PIVOT <table> BY <col> ON <col> USING <kind> [INTO <name>]", ErrSyntax)
	}

	st := &PivotStmt{}
	var err error
	if st.TableName, err = parseIdent(tablePart); err != nil {
		return nil, fmt.Errorf("%w: PIVOT table: %v", ErrSyntax, err)
	}
	if st.GroupBy, err = parseIdent(groupPart); err != nil {
		return nil, fmt.Errorf("%w: PIVOT BY: %v", ErrSyntax, err)
	}
	if st.Value, err = parseIdent(valuePart); err != nil {
		return nil, fmt.Errorf("%w: PIVOT ON: %v", ErrSyntax, err)
	}
	kind, err := parseIdent(kindPart)
	if err != nil {
		return nil, fmt.Errorf("%w: PIVOT USING: %v", ErrSyntax, err)
	}
	st.Kind = strings.ToUpper(kind)

	if intoPart != "" {
		if st.Into, err = parseIdent(intoPart); err != nil {
			return nil, fmt.Errorf("%w: PIVOT INTO: %v", ErrSyntax, err)
		}
	}
	return st, nil
}

func parseLoad(sql string) (Statement, error) {
	// "LOAD 'data/staff.csv' INTO staff"
	rest := strings.TrimSpace(sql[len("LOAD"):])
	if !strings.HasPrefix(rest, "'") {
		return nil, fmt.Errorf("%w: LOAD path must be quoted", ErrSyntax)
	}
	end := strings.Index(rest[1:], "'")
	if end < 0 {
		return nil, fmt.Errorf("%w: LOAD: unterminated path", ErrSyntax)
	}
	path := rest[1 : end+1]
	if path == "" {
		return nil, fmt.Errorf("%w: LOAD: empty path", ErrSyntax)
	}

	rest = strings.TrimSpace(rest[end+2:])
	if !hasKeyword(strings.ToUpper(rest), "INTO") {
		return nil, fmt.Errorf("%w: LOAD needs INTO <table>", ErrSyntax)
	}
	name, err := parseIdent(rest[len("INTO"):])
	if err != nil {
		return nil, fmt.Errorf("%w: LOAD INTO: %v", ErrSyntax, err)
	}
	return &LoadStmt{Path: path, TableName: name}, nil
}

func parseWhereEq(s string) (*WhereEq, error) {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 {
		return nil, fmt.Errorf("%w: only WHERE <col> = <literal> is supported", ErrSyntax)
	}

	col, err := parseIdent(kv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: WHERE column: %v", ErrSyntax, err)
	}
	lit, err := parseLiteral(strings.TrimSpace(kv[1]))
	if err != nil {
		return nil, err
	}
	return &WhereEq{Column: col, Value: &LiteralExpr{Value: lit}}, nil
}

// parseLiteral accepts 'text', TRUE/FALSE, int64 and float64 literals.
// Inside quotes, '' is an escaped quote.
func parseLiteral(rv string) (any, error) {
	up := strings.ToUpper(rv)
	switch up {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	case "NULL":
		return nil, fmt.Errorf("%w: NULL values are not supported", ErrSyntax)
	}

	if len(rv) >= 2 && rv[0] == '\'' && rv[len(rv)-1] == '\'' {
		return strings.ReplaceAll(rv[1:len(rv)-1], "''", "'"), nil
	}
	if i, err := strconv.ParseInt(rv, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(rv, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: unsupported literal %q", ErrSyntax, rv)
}

// splitKeyword splits "X <keyword> Y" case-insensitively and returns
// (X, Y). If keyword is not present it returns (s, "").
//
// The keyword must be surrounded by spaces.
func splitKeyword(s, keyword string) (string, string) {
	up := strings.ToUpper(s)
	k := " " + strings.ToUpper(keyword) + " "
	idx := strings.Index(up, k)
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(k):])
}

// collapseSpace turns every whitespace run outside single quotes into one
// space, so keywords split across lines still match. Quoted text is kept
// verbatim.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inQuote, pending := false, false
	for _, r := range strings.TrimSpace(s) {
		if !inQuote && unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		if r == '\'' {
			inQuote = !inQuote
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitComma splits a comma-separated list, ignoring commas inside quotes.
func splitComma(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
