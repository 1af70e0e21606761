package test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Data Type Tests =====

func (dct *DriverConformanceTests) TestStorageClasses(t *testing.T) {
	if dct.shouldSkip("TestStorageClasses") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (f REAL, i INTEGER, b TEXT, x BLOB); INSERT INTO t VALUES (123, 123, '123', x'7B')")

	r := td.Reader("SELECT f, i, b, x FROM t", sqlite.BehaviorDefault)
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)

	expected := map[string]any{
		"F": 123.0,
		"I": int64(123),
		"B": "123",
		"X": []byte{0x7B},
	}
	for name, want := range expected {
		got, err := r.GetValueByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func (dct *DriverConformanceTests) TestDeclaredTypeNames(t *testing.T) {
	if dct.shouldSkip("TestDeclaredTypeNames") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (d DATETIME, g guidblob)")

	r := td.Reader("SELECT d, g FROM t", sqlite.BehaviorDefault)
	name, err := r.GetDataTypeName(0)
	require.NoError(t, err)
	assert.Equal(t, "DATETIME", name)

	name, err = r.GetDataTypeName(1)
	require.NoError(t, err)
	assert.Equal(t, "guidblob", name)

	ft, err := r.GetFieldType(0)
	require.NoError(t, err)
	assert.Equal(t, "time.Time", ft.String())
}

func (dct *DriverConformanceTests) TestTimestampModes(t *testing.T) {
	if dct.shouldSkip("TestTimestampModes") {
		t.Skip("Test skipped by engine")
	}

	path := filepath.Join(t.TempDir(), "timestamps.db")
	ctx := context.Background()

	setup := sqlite.NewConnection(dct.ConnString(path))
	require.NoError(t, setup.Open(ctx))
	_, err := sqlite.NewCommand(setup, "CREATE TABLE t (ts TIMESTAMP); INSERT INTO t VALUES (124123)").ExecuteNonQuery(ctx)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	read := func(extra ...string) (any, error) {
		conn := sqlite.NewConnection(dct.ConnString(path, extra...))
		require.NoError(t, conn.Open(ctx))
		defer conn.Close()
		return sqlite.NewCommand(conn, "SELECT ts FROM t").ExecuteScalar(ctx)
	}

	if dct.Characteristics.IntegerTimestamps {
		// the engine would hand 124123 back as a time, so strict mode is refused
		conn := sqlite.NewConnection(dct.ConnString(path, "DateTimeFormat=ISO8601"))
		assert.ErrorIs(t, conn.Open(ctx), sqlite.ErrConfiguration)
	} else {
		_, err = read("DateTimeFormat=ISO8601")
		assert.ErrorIs(t, err, sqlite.ErrFormat)
	}

	v, err := read("DateTimeFormat=UnixEpoch")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(124123, 0).UTC(), v)
}

func (dct *DriverConformanceTests) TestMalformedTimestamps(t *testing.T) {
	if dct.shouldSkip("TestMalformedTimestamps") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t, "DateTimeFormat=UnixEpoch")
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (d DATETIME); INSERT INTO t VALUES ('garbage'), ('2024-03-01 12:30:45')")

	r := td.Reader("SELECT d FROM t ORDER BY rowid", sqlite.BehaviorDefault)
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = r.GetValue(0)
	assert.ErrorIs(t, err, sqlite.ErrFormat)
	_, err = r.GetDateTime(0)
	assert.ErrorIs(t, err, sqlite.ErrFormat)

	ok, err = r.Read()
	require.NoError(t, err)
	require.True(t, ok)
	v, err := r.GetDateTime(0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC), v)
}

func (dct *DriverConformanceTests) TestGUIDs(t *testing.T) {
	if dct.shouldSkip("TestGUIDs") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (id UNIQUEIDENTIFIER)")

	id := uuid.New()
	td.Exec("INSERT INTO t VALUES (?)", id)
	assert.Equal(t, id, td.Scalar("SELECT id FROM t"))
	assert.Equal(t, "blob", td.Scalar("SELECT typeof(id) FROM t"))
}

func (dct *DriverConformanceTests) TestNullValues(t *testing.T) {
	if dct.shouldSkip("TestNullValues") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER, b TEXT)")
	td.Exec("INSERT INTO t VALUES (?, ?)", nil, sqlite.DBNull)

	r := td.Reader("SELECT a, b FROM t", sqlite.BehaviorDefault)
	ok, err := r.Read()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 2; i++ {
		null, err := r.IsDBNull(i)
		require.NoError(t, err)
		assert.True(t, null)
		v, err := r.GetValue(i)
		require.NoError(t, err)
		assert.Equal(t, sqlite.DBNull, v)
	}
}
