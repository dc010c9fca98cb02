package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RequireSemicolon(t *testing.T) {
	_, err := Parse("SELECT * FROM staff")
	require.ErrorIs(t, err, ErrSyntax)
	require.Contains(t, err.Error(), "missing ';'")

	_, err = Parse("   ;")
	require.ErrorIs(t, err, ErrSyntax)
}

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE staff (sex TEXT, age int64, hired BOOL);")
	require.NoError(t, err)

	s, ok := stmt.(*CreateTableStmt)
	require.True(t, ok, "want *CreateTableStmt, got %T", stmt)
	require.Equal(t, "staff", s.TableName)
	assert.Equal(t, []ColumnDef{
		{Name: "sex", Type: "TEXT"},
		{Name: "age", Type: "INT64"},
		{Name: "hired", Type: "BOOL"},
	}, s.Columns)
}

func TestParse_CreateTable_Invalid(t *testing.T) {
	for _, sql := range []string{
		"CREATE TABLE staff sex TEXT;",
		"CREATE TABLE staff ();",
		"CREATE TABLE staff ok (id INT);",
		"CREATE TABLE staff (1id INT);",
		"CREATE TABLE staff (id);",
	} {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestParse_DropTable(t *testing.T) {
	stmt, err := Parse("drop table staff;")
	require.NoError(t, err)
	assert.Equal(t, &DropTableStmt{TableName: "staff"}, stmt)
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO staff VALUES ('Male', 20, true, 1.5, 'O''Brien');")
	require.NoError(t, err)

	s, ok := stmt.(*InsertStmt)
	require.True(t, ok, "want *InsertStmt, got %T", stmt)
	require.Equal(t, "staff", s.TableName)

	want := []any{"Male", int64(20), true, 1.5, "O'Brien"}
	require.Len(t, s.Values, len(want))
	for i := range want {
		assert.Equal(t, want[i], s.Values[i].(*LiteralExpr).Value, "value[%d]", i)
	}
}

func TestParse_Insert_CommaInsideQuotes(t *testing.T) {
	stmt, err := Parse("insert into t values ('a,b', 2);")
	require.NoError(t, err)

	s := stmt.(*InsertStmt)
	require.Len(t, s.Values, 2)
	assert.Equal(t, "a,b", s.Values[0].(*LiteralExpr).Value)
	assert.Equal(t, int64(2), s.Values[1].(*LiteralExpr).Value)
}

func TestParse_Insert_Invalid(t *testing.T) {
	for _, sql := range []string{
		"INSERT INTO staff ok VALUES (1);",
		"INSERT INTO staff (1);",
		"INSERT INTO staff VALUES 1, 2;",
		"INSERT INTO staff VALUES ();",
		"INSERT INTO staff VALUES (NULL);",
	} {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestParse_Select(t *testing.T) {
	stmt, err := Parse("SELECT * FROM staff;")
	require.NoError(t, err)
	assert.Equal(t, &SelectStmt{TableName: "staff"}, stmt)

	stmt, err = Parse("select * from staff where sex = 'Male';")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	require.NotNil(t, s.Where)
	assert.Equal(t, "sex", s.Where.Column)
	assert.Equal(t, "Male", s.Where.Value.(*LiteralExpr).Value)

	_, err = Parse("SELECT sex FROM staff;")
	require.ErrorIs(t, err, ErrSyntax)
	_, err = Parse("SELECT * FROM staff WHERE 1id = 10;")
	require.ErrorIs(t, err, ErrSyntax)
}

func TestParse_Pivot(t *testing.T) {
	cases := []struct {
		sql  string
		want *PivotStmt
	}{
		{
			sql:  "PIVOT staff BY sex ON age USING MIN;",
			want: &PivotStmt{TableName: "staff", GroupBy: "sex", Value: "age", Kind: "MIN"},
		},
		{
			sql:  "pivot staff by sex on age using avg into avg_age;",
			want: &PivotStmt{TableName: "staff", GroupBy: "sex", Value: "age", Kind: "AVG", Into: "avg_age"},
		},
		{
			sql:  "PIVOT staff\n  BY sex\n  ON age\n  USING Count;",
			want: &PivotStmt{TableName: "staff", GroupBy: "sex", Value: "age", Kind: "COUNT"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.sql, func(t *testing.T) {
			stmt, err := Parse(tc.sql)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stmt)
		})
	}
}

func TestParse_Pivot_Invalid(t *testing.T) {
	for _, sql := range []string{
		"PIVOT staff BY sex ON age;",
		"PIVOT staff BY sex USING MIN;",
		"PIVOT staff ON age USING MIN;",
		"PIVOT staff BY sex ON age USING MIN INTO;",
		"PIVOT staff BY sex ON age USING MIN INTO a b;",
		"PIVOT BY sex ON age USING MIN;",
	} {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestParse_Load(t *testing.T) {
	stmt, err := Parse("LOAD '/tmp/my data/staff.csv' into staff;")
	require.NoError(t, err)
	assert.Equal(t, &LoadStmt{Path: "/tmp/my data/staff.csv", TableName: "staff"}, stmt)

	for _, sql := range []string{
		"LOAD staff.csv INTO staff;",
		"LOAD 'staff.csv INTO staff;",
		"LOAD '' INTO staff;",
		"LOAD 'staff.csv' staff;",
	} {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestParse_ShowTables(t *testing.T) {
	stmt, err := Parse("show   tables;")
	require.NoError(t, err)
	assert.IsType(t, &ShowTablesStmt{}, stmt)
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse("ALTER TABLE t ADD COLUMN x INT;")
	require.ErrorIs(t, err, ErrSyntax)

	_, err = Parse("PIVOTS t BY a ON b USING MIN;")
	require.ErrorIs(t, err, ErrSyntax)
}

func TestParseLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want any
		ok   bool
	}{
		{"TRUE", true, true},
		{"false", false, true},
		{"'abc'", "abc", true},
		{"''", "", true},
		{"123", int64(123), true},
		{"-7", int64(-7), true},
		{"1.25", 1.25, true},
		{"NULL", nil, false},
		{"abc", nil, false},
		{"'unterminated", nil, false},
	}

	for _, tc := range cases {
		got, err := parseLiteral(tc.in)
		if tc.ok {
			require.NoError(t, err, "parseLiteral(%q)", tc.in)
			assert.Equal(t, tc.want, got, "parseLiteral(%q)", tc.in)
		} else {
			require.Error(t, err, "parseLiteral(%q)", tc.in)
		}
	}
}

func TestParse_NewlinesBetweenKeywords(t *testing.T) {
	stmt, err := Parse("PIVOT staff\nBY sex\tON age\r\nUSING MIN;")
	require.NoError(t, err)
	assert.Equal(t, &PivotStmt{TableName: "staff", GroupBy: "sex", Value: "age", Kind: "MIN"}, stmt)

	stmt, err = Parse("INSERT INTO staff\nVALUES ('Male  x', 20);")
	require.NoError(t, err)
	ins := stmt.(*InsertStmt)
	assert.Equal(t, "Male  x", ins.Values[0].(*LiteralExpr).Value)

	stmt, err = Parse("SELECT * FROM staff\nWHERE sex = 'Male';")
	require.NoError(t, err)
	assert.Equal(t, "staff", stmt.(*SelectStmt).TableName)
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", collapseSpace("  a\n\tb   c \n"))
	assert.Equal(t, "x = 'a \n  b' y", collapseSpace("x  =\n'a \n  b'\ny"))
}

func TestSplitComma(t *testing.T) {
	got := splitComma("1,'a,b',true,'x'")
	assert.Equal(t, []string{"1", "'a,b'", "true", "'x'"}, got)
}

func TestSplitKeyword(t *testing.T) {
	left, right := splitKeyword("staff WHERE id=1", "where")
	assert.Equal(t, "staff", left)
	assert.Equal(t, "id=1", right)

	left, right = splitKeyword("staff", "WHERE")
	assert.Equal(t, "staff", left)
	assert.Empty(t, right)

	// the keyword needs surrounding spaces
	left, right = splitKeyword("staff WHEREid=1", "WHERE")
	assert.Equal(t, "staff WHEREid=1", left)
	assert.Empty(t, right)
}
