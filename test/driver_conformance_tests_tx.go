package test

import (
	"context"
	"errors"
	"testing"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Transaction Tests =====

func (dct *DriverConformanceTests) TestBeginCommit(t *testing.T) {
	if dct.shouldSkip("TestBeginCommit") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER)")

	tx, err := td.Conn.BeginTransaction(context.Background())
	require.NoError(t, err)

	cmd := td.Command("INSERT INTO t VALUES (?)", 1)
	cmd.Transaction = tx
	_, err = cmd.ExecuteNonQuery(context.Background())
	assert.NoError(t, err)

	assert.NoError(t, tx.Commit())
	assert.Equal(t, sqlite.TxCommitted, tx.State())
	assert.ErrorIs(t, tx.Commit(), sqlite.ErrState, "Commit twice must fail")
	td.AssertCount("t", 1)
}

func (dct *DriverConformanceTests) TestBeginRollback(t *testing.T) {
	if dct.shouldSkip("TestBeginRollback") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER)")

	tx, err := td.Conn.BeginTransaction(context.Background())
	require.NoError(t, err)
	td.Exec("INSERT INTO t VALUES (1)")

	assert.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Commit(), sqlite.ErrState, "Commit after Rollback must fail")
	td.AssertCount("t", 0)
}

func (dct *DriverConformanceTests) TestTransactionFunction(t *testing.T) {
	if dct.shouldSkip("TestTransactionFunction") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER)")

	ctx := context.Background()
	err := td.Conn.WithTransaction(ctx, func(tx *sqlite.Transaction) error {
		td.Exec("INSERT INTO t VALUES (1)")
		return nil
	})
	assert.NoError(t, err)

	failure := errors.New("fail")
	err = td.Conn.WithTransaction(ctx, func(tx *sqlite.Transaction) error {
		td.Exec("INSERT INTO t VALUES (2)")
		return failure
	})
	assert.ErrorIs(t, err, failure)
	td.AssertCount("t", 1)
}

func (dct *DriverConformanceTests) TestTransactionErrorHandling(t *testing.T) {
	if dct.shouldSkip("TestTransactionErrorHandling") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER, b TEXT); INSERT INTO t VALUES (1, 'keep')")

	ctx := context.Background()
	tx, err := td.Conn.BeginTransaction(ctx)
	require.NoError(t, err)

	_, err = td.Command("UPDATE t SET b = ?", "changed").ExecuteNonQuery(ctx)
	require.NoError(t, err)
	_, err = td.Command("INSERT INTO t VALUES (2)").ExecuteNonQuery(ctx)
	require.ErrorIs(t, err, sqlite.ErrEngine)

	assert.Equal(t, sqlite.TxFailed, tx.State())
	assert.ErrorIs(t, tx.Commit(), sqlite.ErrState)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, "keep", td.Scalar("SELECT b FROM t"))
	td.AssertCount("t", 1)
}

func (dct *DriverConformanceTests) TestNestedTransaction(t *testing.T) {
	if dct.shouldSkip("TestNestedTransaction") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	tx, err := td.Conn.BeginTransaction(context.Background())
	require.NoError(t, err)
	defer tx.Close()

	_, err = td.Conn.BeginTransaction(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrState)
}
