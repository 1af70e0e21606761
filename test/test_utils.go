package test

import (
	"context"
	"testing"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDatabase provides utilities for test database management
type TestDatabase struct {
	Conn    *sqlite.Connection
	Path    string
	Cleanup func()
	T       *testing.T
}

// NewTestDatabase creates a new test database instance
func NewTestDatabase(t *testing.T, conn *sqlite.Connection, path string, cleanup func()) *TestDatabase {
	return &TestDatabase{
		Conn:    conn,
		Path:    path,
		T:       t,
		Cleanup: cleanup,
	}
}

// Command creates a command with positional parameters
func (td *TestDatabase) Command(text string, args ...any) *sqlite.Command {
	cmd := sqlite.NewCommand(td.Conn, text)
	for _, arg := range args {
		cmd.Parameters().AddPositional(arg)
	}
	return cmd
}

// Exec runs a non-query command and fails the test on error
func (td *TestDatabase) Exec(text string, args ...any) int64 {
	td.T.Helper()
	n, err := td.Command(text, args...).ExecuteNonQuery(context.Background())
	require.NoError(td.T, err, text)
	return n
}

// Scalar runs a scalar command and fails the test on error
func (td *TestDatabase) Scalar(text string, args ...any) any {
	td.T.Helper()
	v, err := td.Command(text, args...).ExecuteScalar(context.Background())
	require.NoError(td.T, err, text)
	return v
}

// Reader opens a reader that is closed when the test ends
func (td *TestDatabase) Reader(text string, behavior sqlite.CommandBehavior) *sqlite.Reader {
	td.T.Helper()
	r, err := td.Command(text).ExecuteReader(context.Background(), behavior)
	require.NoError(td.T, err, text)
	td.T.Cleanup(func() { r.Close() })
	return r
}

// AssertCount asserts the number of rows in a table
func (td *TestDatabase) AssertCount(table string, expected int64) {
	td.T.Helper()
	v := td.Scalar(`SELECT count(*) FROM "` + table + `"`)
	assert.Equal(td.T, expected, v, "row count of %s", table)
}

// ReadAll drains the current result set and returns the number of rows
func ReadAll(t *testing.T, r *sqlite.Reader) int {
	t.Helper()
	rows := 0
	for {
		ok, err := r.Read()
		require.NoError(t, err)
		if !ok {
			return rows
		}
		rows++
	}
}
