package parser

// Statement is the root interface for all statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE / DROP TABLE -----
type ColumnDef struct {
	Name string
	Type string // upper-cased, resolved by record.ParseColumnType
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

type DropTableStmt struct {
	TableName string
}

func (*DropTableStmt) stmtNode() {}

// ----- INSERT -----
type InsertStmt struct {
	TableName string
	Values    []Expr
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	TableName string
	Where     *WhereEq
}

func (*SelectStmt) stmtNode() {}

// WhereEq is the only predicate form: <col> = <literal>.
type WhereEq struct {
	Column string
	Value  Expr
}

// ----- PIVOT -----
// PIVOT <table> BY <group col> ON <value col> USING <kind> [INTO <name>]
type PivotStmt struct {
	TableName string
	GroupBy   string
	Value     string
	Kind      string
	Into      string
}

func (*PivotStmt) stmtNode() {}

// ----- LOAD / SHOW -----
// LOAD '<path>' INTO <table>
type LoadStmt struct {
	Path      string
	TableName string
}

func (*LoadStmt) stmtNode() {}

type ShowTablesStmt struct{}

func (*ShowTablesStmt) stmtNode() {}

// ----- Expressions -----
type Expr interface {
	exprNode()
}

type LiteralExpr struct {
	Value any
}

func (*LiteralExpr) exprNode() {}
