package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokens(t *testing.T) {
	input := `SELECT "a;b", 'it''s', [x y], x'0F', 1.5e3 FROM t -- trailing;
/* block; */ WHERE id = :id;`

	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdent, "SELECT"},
		{TokenQuotedIdent, `"a;b"`},
		{TokenPunctuation, ","},
		{TokenString, `'it''s'`},
		{TokenPunctuation, ","},
		{TokenQuotedIdent, "[x y]"},
		{TokenPunctuation, ","},
		{TokenBlob, "x'0F'"},
		{TokenPunctuation, ","},
		{TokenNumber, "1.5e3"},
		{TokenIdent, "FROM"},
		{TokenIdent, "t"},
		{TokenComment, "-- trailing;"},
		{TokenComment, "/* block; */"},
		{TokenIdent, "WHERE"},
		{TokenIdent, "id"},
		{TokenPunctuation, "="},
		{TokenPlaceholder, ":id"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		assert.Equal(t, exp.typ, tok.Type, "token %d type (%q)", i, tok.Literal)
		assert.Equal(t, exp.lit, tok.Literal, "token %d literal", i)
	}
}

func TestSplit_MultipleStatements(t *testing.T) {
	text := `
create table test (
  id int NOT NULL PRIMARY KEY,
  name varchar (20)
);

insert into test values (1, "mono test 1");
insert into test values (2, 'semi;colon');
`
	stmts, err := Split(text)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, "CREATE", stmts[0].Keyword)
	assert.Equal(t, "INSERT", stmts[1].Keyword)
	assert.Equal(t, `insert into test values (2, 'semi;colon')`, stmts[2].Text)
	for _, s := range stmts {
		assert.False(t, s.IsQuery())
	}
}

func TestSplit_IgnoresWhitespaceAndEmptyStatements(t *testing.T) {
	stmts, err := Split("  ;; SELECT * FROM t1;   ; -- done\n")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "SELECT * FROM t1", stmts[0].Text)
	assert.True(t, stmts[0].IsQuery())

	stmts, err = Split("   \n\t ")
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestSplit_Placeholders(t *testing.T) {
	stmts, err := Split("DROP TABLE IF EXISTS x; INSERT INTO x (a, b, c, d) VALUES (:F2, @F3, ?, $v1)")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Empty(t, stmts[0].Placeholders)

	ph := stmts[1].Placeholders
	require.Len(t, ph, 4)
	assert.Equal(t, Placeholder{Kind: Named, Prefix: ':', Name: "F2", Pos: ph[0].Pos}, ph[0])
	assert.Equal(t, "@F3", ph[1].Text())
	assert.Equal(t, Positional, ph[2].Kind)
	assert.Equal(t, "v1", ph[3].Name)
}

func TestSplit_PlaceholdersInsideLiteralsAreIgnored(t *testing.T) {
	stmts, err := Split(`SELECT ':a', "?", [@b] FROM t WHERE x = ?2`)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Len(t, stmts[0].Placeholders, 1)
	assert.Equal(t, Numbered, stmts[0].Placeholders[0].Kind)
	assert.Equal(t, 2, stmts[0].Placeholders[0].Index)
	assert.Equal(t, "?2", stmts[0].Placeholders[0].Text())
}

func TestSplit_Trigger(t *testing.T) {
	text := `CREATE TRIGGER trg AFTER INSERT ON t BEGIN
  UPDATE t SET n = CASE WHEN n IS NULL THEN 0 ELSE n END WHERE id = new.id;
  INSERT INTO log VALUES (new.id);
END; SELECT 1`

	stmts, err := Split(text)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0].Text, "INSERT INTO log VALUES (new.id);")
	assert.True(t, stmts[0].Text[len(stmts[0].Text)-3:] == "END")
	assert.Equal(t, "SELECT 1", stmts[1].Text)
}

func TestSplit_Returning(t *testing.T) {
	stmts, err := Split("INSERT INTO t (a) VALUES (1) RETURNING id")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.True(t, stmts[0].IsQuery())
}

func TestStatement_Modifies(t *testing.T) {
	stmts, err := Split(`CREATE TABLE t (a INT);
INSERT INTO t VALUES (1);
replace into t values (2);
UPDATE t SET a = 3;
DELETE FROM t;
WITH x(n) AS (SELECT 1) INSERT INTO t SELECT n FROM x;
WITH x(n) AS (SELECT 1) SELECT n FROM x;
WITH d AS (SELECT a FROM t WHERE a IN (SELECT 1)) SELECT * FROM d;
SELECT 1`)
	require.NoError(t, err)
	require.Len(t, stmts, 9)

	want := []bool{false, true, true, true, true, true, false, false, false}
	for i, stmt := range stmts {
		assert.Equal(t, want[i], stmt.Modifies(), stmt.Text)
	}

	assert.False(t, stmts[5].IsQuery(), "WITH ... INSERT produces no rows")
	assert.True(t, stmts[6].IsQuery())
}

func TestSplit_UnterminatedLiteral(t *testing.T) {
	_, err := Split("SELECT 'oops FROM t")
	assert.Error(t, err)
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "PLACEHOLDER", TokenPlaceholder.String())
	assert.Equal(t, "UNKNOWN", TokenType(99).String())
}
