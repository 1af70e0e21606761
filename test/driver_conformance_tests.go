package test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DriverCharacteristics defines engine-specific behaviors
type DriverCharacteristics struct {
	// IntegerTimestamps indicates the engine converts INTEGER values in
	// DATE/DATETIME/TIMESTAMP columns to times before the reader sees them
	// (mattn/go-sqlite3 behavior), so it only opens with DateTimeFormat=UnixEpoch
	IntegerTimestamps bool

	// SupportsInterrupt indicates a command timeout interrupts a running
	// statement
	SupportsInterrupt bool
}

// DriverConformanceTests provides a test suite every engine must pass
type DriverConformanceTests struct {
	EngineName      string
	Characteristics DriverCharacteristics
	SkipTests       map[string]bool // For engine-specific test skipping

	// ConnOptions are appended to every connection string the suite builds
	ConnOptions []string
}

// RunAll runs all conformance tests
func (dct *DriverConformanceTests) RunAll(t *testing.T) {
	// Connection Management
	t.Run("ConnectionManagement", func(t *testing.T) {
		t.Run("OpenClose", dct.TestOpenClose)
		t.Run("OpenWithInvalidConfig", dct.TestOpenWithInvalidConfig)
		t.Run("OpenMissingFile", dct.TestOpenMissingFile)
		t.Run("ReconfigureWhileOpen", dct.TestReconfigureWhileOpen)
		t.Run("MultipleConnections", dct.TestMultipleConnections)
		t.Run("ReuseCycles", dct.TestReuseCycles)
	})

	// Commands
	t.Run("Commands", func(t *testing.T) {
		t.Run("InsertDeleteCounts", dct.TestInsertDeleteCounts)
		t.Run("MultiStatementCounts", dct.TestMultiStatementCounts)
		t.Run("Scalar", dct.TestScalar)
		t.Run("NamedParameters", dct.TestNamedParameters)
		t.Run("ParameterMismatch", dct.TestParameterMismatch)
		t.Run("InvalidQuery", dct.TestInvalidQuery)
		t.Run("Timeout", dct.TestTimeout)
	})

	// Transactions
	t.Run("Transactions", func(t *testing.T) {
		t.Run("BeginCommit", dct.TestBeginCommit)
		t.Run("BeginRollback", dct.TestBeginRollback)
		t.Run("TransactionFunction", dct.TestTransactionFunction)
		t.Run("TransactionErrorHandling", dct.TestTransactionErrorHandling)
		t.Run("NestedTransaction", dct.TestNestedTransaction)
	})

	// Readers
	t.Run("Readers", func(t *testing.T) {
		t.Run("ExhaustedIsStable", dct.TestExhaustedIsStable)
		t.Run("CaseInsensitiveLookup", dct.TestCaseInsensitiveLookup)
		t.Run("CloseConnection", dct.TestCloseConnection)
		t.Run("ReaderBlocksCommands", dct.TestReaderBlocksCommands)
	})

	// Data Types
	t.Run("DataTypes", func(t *testing.T) {
		t.Run("StorageClasses", dct.TestStorageClasses)
		t.Run("DeclaredTypeNames", dct.TestDeclaredTypeNames)
		t.Run("TimestampModes", dct.TestTimestampModes)
		t.Run("MalformedTimestamps", dct.TestMalformedTimestamps)
		t.Run("GUIDs", dct.TestGUIDs)
		t.Run("NullValues", dct.TestNullValues)
	})
}

// Helper to check if a test should be skipped
func (dct *DriverConformanceTests) shouldSkip(testName string) bool {
	if dct.SkipTests == nil {
		return false
	}
	return dct.SkipTests[testName]
}

// ConnString builds a connection string for a database file under dir
func (dct *DriverConformanceTests) ConnString(path string, extra ...string) string {
	parts := []string{"URI=file://" + path, "Version=3", "Engine=" + dct.EngineName}
	parts = append(parts, dct.ConnOptions...)
	return strings.Join(append(parts, extra...), ", ")
}

// Helper to create a test database
func (dct *DriverConformanceTests) createTestDB(t *testing.T, extra ...string) *TestDatabase {
	path := filepath.Join(t.TempDir(), "conformance.db")
	conn := sqlite.NewConnection(dct.ConnString(path, extra...))

	err := conn.Open(context.Background())
	require.NoError(t, err, "failed to open connection")

	return NewTestDatabase(t, conn, path, func() { conn.Close() })
}

// ===== Connection Management Tests =====

func (dct *DriverConformanceTests) TestOpenClose(t *testing.T) {
	if dct.shouldSkip("TestOpenClose") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	assert.Equal(t, sqlite.StateOpen, td.Conn.State())
	version, err := td.Conn.ServerVersion(context.Background())
	assert.NoError(t, err)
	assert.NotEmpty(t, version)

	assert.NoError(t, td.Conn.Close())
	assert.Equal(t, sqlite.StateClosed, td.Conn.State())
	assert.NoError(t, td.Conn.Close(), "Close should be idempotent")
}

func (dct *DriverConformanceTests) TestOpenWithInvalidConfig(t *testing.T) {
	if dct.shouldSkip("TestOpenWithInvalidConfig") {
		t.Skip("Test skipped by engine")
	}

	path := filepath.Join(t.TempDir(), "invalid.db")
	for _, connStr := range []string{
		"",
		"URI=file://" + path + ", Engine=" + dct.EngineName,
		"Version=3, Engine=" + dct.EngineName,
		"URI=file://" + path + ", Version=3, Engine=" + dct.EngineName + ", Bogus",
	} {
		conn := sqlite.NewConnection(connStr)
		err := conn.Open(context.Background())
		assert.ErrorIs(t, err, sqlite.ErrConfiguration, "connection string %q", connStr)
		assert.Equal(t, sqlite.StateClosed, conn.State())
	}
}

func (dct *DriverConformanceTests) TestOpenMissingFile(t *testing.T) {
	if dct.shouldSkip("TestOpenMissingFile") {
		t.Skip("Test skipped by engine")
	}

	path := filepath.Join(t.TempDir(), "missing.db")
	conn := sqlite.NewConnection(dct.ConnString(path, "FailIfMissing=True"))
	err := conn.Open(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrResourceNotFound)
	assert.Equal(t, sqlite.StateClosed, conn.State())
}

func (dct *DriverConformanceTests) TestReconfigureWhileOpen(t *testing.T) {
	if dct.shouldSkip("TestReconfigureWhileOpen") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()

	err := td.Conn.SetConnectionString(dct.ConnString(td.Path + "-other"))
	assert.ErrorIs(t, err, sqlite.ErrState)
}

func (dct *DriverConformanceTests) TestMultipleConnections(t *testing.T) {
	if dct.shouldSkip("TestMultipleConnections") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	defer td.Cleanup()
	td.Exec("CREATE TABLE t (a INTEGER); INSERT INTO t VALUES (1)")

	ctx := context.Background()
	connections := make([]*sqlite.Connection, 3)
	for i := range connections {
		conn := sqlite.NewConnection(dct.ConnString(td.Path))
		require.NoError(t, conn.Open(ctx))
		connections[i] = conn
	}

	for i, conn := range connections {
		v, err := sqlite.NewCommand(conn, "SELECT count(*) FROM t").ExecuteScalar(ctx)
		assert.NoError(t, err, "Connection %d should be valid", i)
		assert.Equal(t, int64(1), v)
	}

	for _, conn := range connections {
		assert.NoError(t, conn.Close())
	}
}

func (dct *DriverConformanceTests) TestReuseCycles(t *testing.T) {
	if dct.shouldSkip("TestReuseCycles") {
		t.Skip("Test skipped by engine")
	}

	td := dct.createTestDB(t)
	td.Exec("CREATE TABLE t (a INTEGER); INSERT INTO t VALUES (1)")
	td.Cleanup()

	ctx := context.Background()
	conn := sqlite.NewConnection(dct.ConnString(td.Path))
	for i := 0; i < 1000; i++ {
		require.NoError(t, conn.Open(ctx))
		r, err := sqlite.NewCommand(conn, "SELECT a FROM t").ExecuteReader(ctx, sqlite.CloseConnection)
		require.NoError(t, err)
		for {
			ok, err := r.Read()
			require.NoError(t, err)
			if !ok {
				break
			}
		}
		require.NoError(t, r.Close())
		require.Equal(t, sqlite.StateClosed, conn.State(), fmt.Sprintf("cycle %d", i))
	}
}
