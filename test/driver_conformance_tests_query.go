package test

import (
	"context"
	"testing"
	"time"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Command Tests =====

func (dct *DriverConformanceTests) TestInsertDeleteCounts(t *testing.T) {
	if dct.shouldSkip("TestInsertDeleteCounts") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	td.Exec("CREATE TABLE t (a INTEGER, b TEXT)")
	inserted := td.Exec("INSERT INTO t VALUES (?, ?)", 1, "one")
	deleted := td.Exec("DELETE FROM t WHERE a = ?", 1)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, inserted, deleted)
	td.AssertCount("t", 0)
}

func (dct *DriverConformanceTests) TestMultiStatementCounts(t *testing.T) {
	if dct.shouldSkip("TestMultiStatementCounts") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	n := td.Exec(`CREATE TABLE t (a INTEGER);
		INSERT INTO t VALUES (1), (2);
		CREATE TABLE u (a INTEGER);
		UPDATE t SET a = a * 10`)
	assert.Equal(t, int64(4), n)
}

func (dct *DriverConformanceTests) TestScalar(t *testing.T) {
	if dct.shouldSkip("TestScalar") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	td.Exec("CREATE TABLE t (a INTEGER)")
	assert.Nil(t, td.Scalar("SELECT a FROM t"), "no rows yields nil")
	td.Exec("INSERT INTO t VALUES (NULL)")
	assert.Equal(t, sqlite.DBNull, td.Scalar("SELECT a FROM t"))
	assert.Equal(t, int64(1), td.Scalar("SELECT count(*) FROM t"))
}

func (dct *DriverConformanceTests) TestNamedParameters(t *testing.T) {
	if dct.shouldSkip("TestNamedParameters") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	td.Exec("CREATE TABLE t (a INTEGER, b TEXT)")
	cmd := sqlite.NewCommand(td.Conn, "INSERT INTO t VALUES (:F2, :F3); INSERT INTO t VALUES (@F2 + 1, $F3)")
	cmd.Parameters().Add(":F2", 1)
	cmd.Parameters().Add(":F3", "x")
	n, err := cmd.ExecuteNonQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(3), td.Scalar("SELECT sum(a) FROM t WHERE b = ?", "x"))
}

func (dct *DriverConformanceTests) TestParameterMismatch(t *testing.T) {
	if dct.shouldSkip("TestParameterMismatch") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	td.Exec("CREATE TABLE t (a INTEGER, b TEXT)")
	_, err := td.Command("INSERT INTO t VALUES (?, ?)", 1).ExecuteNonQuery(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrBinding)
	_, err = td.Command("INSERT INTO t VALUES (1, 'x')", 1).ExecuteNonQuery(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrBinding)
	td.AssertCount("t", 0)
}

func (dct *DriverConformanceTests) TestInvalidQuery(t *testing.T) {
	if dct.shouldSkip("TestInvalidQuery") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	_, err := td.Command("SELECT * FROM no_such_table").ExecuteScalar(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrEngine)

	var e *sqlite.Error
	require.ErrorAs(t, err, &e)
	assert.Error(t, e.Err, "engine cause must be preserved")
}

func (dct *DriverConformanceTests) TestTimeout(t *testing.T) {
	if dct.shouldSkip("TestTimeout") || !dct.Characteristics.SupportsInterrupt {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	cmd := td.Command(`WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c)
		SELECT count(*) FROM c`)
	cmd.Timeout = 100 * time.Millisecond
	_, err := cmd.ExecuteScalar(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrTimeout)
}
