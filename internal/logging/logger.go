package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides leveled key-value logging for the recognition service.
type Logger struct {
	component string
	logger    *log.Logger
}

// NewLogger creates a logger scoped to a component name.
func NewLogger(component string) *Logger {
	return NewLoggerWithOutput(component, os.Stdout)
}

// NewLoggerWithOutput creates a logger writing to the given destination.
// Used by tests to capture output.
func NewLoggerWithOutput(component string, out io.Writer) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(out, fmt.Sprintf("[%s] ", component), log.LstdFlags),
	}
}

// Info logs an informational message with key-value pairs.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV("INFO", msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV("WARN", msg, keysAndValues...)
}

// Error logs an error message with key-value pairs.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV("ERROR", msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV("DEBUG", msg, keysAndValues...)
}

func (l *Logger) logWithKV(level, msg string, keysAndValues ...interface{}) {
	kvStr := ""
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		kvStr += fmt.Sprintf(" %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Printf("[%s] %s%s", level, msg, kvStr)
}
