package logger

import (
	"fmt"
	"strings"
	"time"
)

// SQLLogger adds statement-level logging on top of a Logger
type SQLLogger struct {
	Logger
}

// NewSQLLogger wraps l; a nil l logs nothing
func NewSQLLogger(l Logger) *SQLLogger {
	if l == nil {
		l = NewNullLogger()
	}
	return &SQLLogger{Logger: l}
}

// LogSQL logs one executed statement with its bound arguments and duration
func (l *SQLLogger) LogSQL(sql string, args []any, duration time.Duration) {
	if l.GetLevel() < LogLevelDebug {
		return
	}

	l.Debug("SQL (%v): %s", duration, strings.TrimSpace(sql))
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = fmt.Sprintf("%v", arg)
		}
		l.Debug("Args: [%s]", strings.Join(parts, ", "))
	}
}

// LogState logs a lifecycle transition of a connection, transaction or reader
func (l *SQLLogger) LogState(object, from, to string) {
	if l.GetLevel() < LogLevelDebug {
		return
	}
	l.Debug("%s: %s -> %s", object, from, to)
}
