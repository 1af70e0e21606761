package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.db")
}

func connStringFor(path string, extra ...string) string {
	parts := append([]string{"URI=file://" + path, "Version=3"}, extra...)
	return strings.Join(parts, ", ")
}

// openAt opens a connection on path and closes it when the test ends
func openAt(t *testing.T, path string, extra ...string) *Connection {
	t.Helper()
	conn := NewConnection(connStringFor(path, extra...))
	require.NoError(t, conn.Open(context.Background()))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func openTestConn(t *testing.T, extra ...string) *Connection {
	t.Helper()
	return openAt(t, testDBPath(t), extra...)
}

func mustExec(t *testing.T, conn *Connection, text string) int64 {
	t.Helper()
	n, err := NewCommand(conn, text).ExecuteNonQuery(context.Background())
	require.NoError(t, err, text)
	return n
}

func mustScalar(t *testing.T, conn *Connection, text string) any {
	t.Helper()
	v, err := NewCommand(conn, text).ExecuteScalar(context.Background())
	require.NoError(t, err, text)
	return v
}
