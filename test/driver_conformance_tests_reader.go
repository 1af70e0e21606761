package test

import (
	"context"
	"testing"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Reader Tests =====

func (dct *DriverConformanceTests) TestExhaustedIsStable(t *testing.T) {
	if dct.shouldSkip("TestExhaustedIsStable") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER, b TEXT); INSERT INTO t VALUES (1, 'x')")

	r := td.Reader("SELECT a, b FROM t", sqlite.BehaviorDefault)
	assert.Equal(t, 2, r.FieldCount())
	assert.Equal(t, 1, ReadAll(t, r))

	for i := 0; i < 3; i++ {
		ok, err := r.Read()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, sqlite.ReaderExhausted, r.State())
	assert.Equal(t, 2, r.FieldCount())

	require.NoError(t, r.Close())
	_, err := r.Read()
	assert.ErrorIs(t, err, sqlite.ErrEngine)
}

func (dct *DriverConformanceTests) TestCaseInsensitiveLookup(t *testing.T) {
	if dct.shouldSkip("TestCaseInsensitiveLookup") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (t INTEGER); INSERT INTO t VALUES (5)")

	r := td.Reader("SELECT t FROM t", sqlite.BehaviorDefault)
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)

	v, err := r.GetValueByName("T")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = r.GetValueByName("nope")
	assert.ErrorIs(t, err, sqlite.ErrIndex)
}

func (dct *DriverConformanceTests) TestCloseConnection(t *testing.T) {
	if dct.shouldSkip("TestCloseConnection") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	r, err := td.Command("SELECT 1").ExecuteReader(context.Background(), sqlite.CloseConnection)
	require.NoError(t, err)
	assert.Equal(t, 1, ReadAll(t, r))
	require.NoError(t, r.Close())
	assert.Equal(t, sqlite.StateClosed, td.Conn.State())
}

func (dct *DriverConformanceTests) TestReaderBlocksCommands(t *testing.T) {
	if dct.shouldSkip("TestReaderBlocksCommands") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER)")

	r := td.Reader("SELECT a FROM t", sqlite.BehaviorDefault)
	_, err := td.Command("INSERT INTO t VALUES (1)").ExecuteNonQuery(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrState)

	require.NoError(t, r.Close())
	td.Exec("INSERT INTO t VALUES (1)")
}
