package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer

	l := NewDefaultLogger("ado")
	l.SetOutput(&buf)
	l.SetLevel(LogLevelDebug)

	tests := []struct {
		logFunc  func(string, ...any)
		message  string
		expected string
	}{
		{l.Debug, "Debug message", "DEBUG"},
		{l.Info, "Info message", "INFO"},
		{l.Warn, "Warn message", "WARN"},
		{l.Error, "Error message", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			buf.Reset()
			tt.logFunc(tt.message)

			output := buf.String()
			assert.Contains(t, output, tt.expected)
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, "[ado]")
		})
	}
}

func TestDefaultLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("")
	l.SetOutput(&buf)
	l.SetLevel(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.NotZero(t, buf.Len())

	buf.Reset()
	l.Error("shown")
	assert.NotZero(t, buf.Len())
}

func TestDefaultLogger_DisableColor(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger("")
	l.SetOutput(&buf)
	l.DisableColor()

	l.Info("plain")
	assert.False(t, strings.Contains(buf.String(), "\033["))
	assert.Contains(t, buf.String(), "INFO: plain")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"none", LogLevelNone},
		{"off", LogLevelNone},
		{"invalid", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestSQLLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewDefaultLogger("")
	base.SetOutput(&buf)
	base.DisableColor()

	l := NewSQLLogger(base)

	// INFO level suppresses statement logging
	l.LogSQL("SELECT 1", nil, time.Millisecond)
	assert.Zero(t, buf.Len())

	base.SetLevel(LogLevelDebug)
	l.LogSQL("  INSERT INTO t VALUES (?)  ", []any{42}, time.Millisecond)
	assert.Contains(t, buf.String(), "INSERT INTO t VALUES (?)")
	assert.Contains(t, buf.String(), "Args: [42]")

	buf.Reset()
	l.LogState("connection", "Closed", "Open")
	assert.Contains(t, buf.String(), "connection: Closed -> Open")
}

func TestGlobalLogger(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	custom := NewDefaultLogger("x")
	SetGlobalLogger(custom)
	assert.Same(t, custom, GetGlobalLogger())

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NullLogger)
	assert.True(t, ok)
}
