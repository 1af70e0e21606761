package registry

import (
	"testing"

	"github.com/rediwo/redi-ado/connstr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanRegistry(t *testing.T) {
	mu.Lock()
	saved := engines
	engines = make(map[string]Engine)
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		engines = saved
		mu.Unlock()
	})
}

func TestRegisterAndGet(t *testing.T) {
	withCleanRegistry(t)

	Register(Engine{Name: "Test", DriverName: "testdriver"})

	engine, err := Get("test")
	require.NoError(t, err)
	assert.Equal(t, "testdriver", engine.DriverName)
	require.NotNil(t, engine.DSN)
	assert.Equal(t, "a.db", engine.DSN(connstr.Options{DataSource: "a.db"}))

	_, err = Get("missing")
	assert.Error(t, err)
}

func TestRegister_Panics(t *testing.T) {
	withCleanRegistry(t)

	Register(Engine{Name: "dup", DriverName: "d"})

	tests := []struct {
		name   string
		engine Engine
	}{
		{"duplicate", Engine{Name: "DUP", DriverName: "d"}},
		{"no name", Engine{DriverName: "d"}},
		{"no driver", Engine{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { Register(tt.engine) })
		})
	}
}

func TestNames(t *testing.T) {
	withCleanRegistry(t)

	Register(Engine{Name: "zeta", DriverName: "z"})
	Register(Engine{Name: "alpha", DriverName: "a", DSN: func(o connstr.Options) string { return "file:" + o.DataSource }})

	assert.Equal(t, []string{"alpha", "zeta"}, Names())

	engine, err := Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "file:x", engine.DSN(connstr.Options{DataSource: "x"}))
}
