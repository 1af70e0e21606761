package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

func levelColor(level LogLevel) string {
	switch level {
	case LogLevelError:
		return colorRed
	case LogLevelWarn:
		return colorYellow
	case LogLevelInfo:
		return colorGreen
	case LogLevelDebug:
		return colorGray
	default:
		return colorReset
	}
}

// DefaultLogger writes timestamped, colored lines to an io.Writer
type DefaultLogger struct {
	mu      sync.RWMutex
	level   LogLevel
	logger  *log.Logger
	prefix  string
	noColor bool
}

// NewDefaultLogger creates a logger writing to stdout at INFO level
func NewDefaultLogger(prefix string) *DefaultLogger {
	return &DefaultLogger{
		level:  LogLevelInfo,
		logger: log.New(os.Stdout, "", 0),
		prefix: prefix,
	}
}

// SetLevel sets the logging level
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *DefaultLogger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetOutput sets the output writer
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// DisableColor strips ANSI codes, for writers that are not terminals
func (l *DefaultLogger) DisableColor() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.noColor = true
}

func (l *DefaultLogger) log(level LogLevel, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.level < level {
		return
	}

	stamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)
	levelStr := level.String()
	if !l.noColor {
		levelStr = levelColor(level) + levelStr + colorReset
	}

	if l.prefix != "" {
		l.logger.Printf("%s [%s] %s: %s", stamp, l.prefix, levelStr, message)
	} else {
		l.logger.Printf("%s %s: %s", stamp, levelStr, message)
	}
}

func (l *DefaultLogger) Debug(format string, args ...any) { l.log(LogLevelDebug, format, args...) }
func (l *DefaultLogger) Info(format string, args ...any)  { l.log(LogLevelInfo, format, args...) }
func (l *DefaultLogger) Warn(format string, args ...any)  { l.log(LogLevelWarn, format, args...) }
func (l *DefaultLogger) Error(format string, args ...any) { l.log(LogLevelError, format, args...) }
