package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "none"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	conn := "URI=file://" + filepath.Join(t.TempDir(), "cli.db") + ", Version=3"

	out, err := run(t, "exec", "--conn", conn, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, data BLOB)")
	require.NoError(t, err)
	assert.Equal(t, "0 row(s) affected\n", out)

	out, err = run(t, "exec", "--conn", conn,
		"INSERT INTO t (name, data) VALUES (:name, x'0A0B'); INSERT INTO t (name) VALUES (?)",
		"--param", "name=alice", "--arg", "bob")
	require.NoError(t, err)
	assert.Equal(t, "2 row(s) affected\n", out)

	out, err = run(t, "scalar", "--conn", conn, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "scalar", "--conn", conn, "SELECT name FROM t WHERE id = -1")
	require.NoError(t, err)
	assert.Equal(t, "(no rows)\n", out)

	out, err = run(t, "query", "--conn", conn, "SELECT id, name, data FROM t ORDER BY id")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "x'0A0B'")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 row(s))")

	out, err = run(t, "query", "--conn", conn, "--types", "SELECT name FROM t")
	require.NoError(t, err)
	assert.Contains(t, out, "name (TEXT)")
}

func TestCLIErrors(t *testing.T) {
	t.Setenv(connEnv, "")

	_, err := run(t, "scalar", "SELECT 1")
	assert.ErrorContains(t, err, "no connection string")

	conn := "Data Source=:memory:, Version=3"
	_, err = run(t, "exec", "--conn", conn, "SELECT :x", "--param", "novalue")
	assert.ErrorContains(t, err, "invalid --param")

	_, err = run(t, "exec", "--conn", conn)
	assert.Error(t, err)
}

func TestCLIConnFromEnv(t *testing.T) {
	t.Setenv(connEnv, "Data Source=:memory:, Version=3")

	out, err := run(t, "scalar", "SELECT 40 + 2")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out)
}
