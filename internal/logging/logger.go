package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Logger provides structured JSON logging with correlation ID support
type Logger struct {
	mu      sync.Mutex
	output  io.Writer
	level   LogLevel
	service string
	base    map[string]interface{}
}

// LoggerOption is a function that configures a Logger
type LoggerOption func(*Logger)

// WithOutput sets the output writer for the logger
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.output = w
	}
}

// WithLevel sets the minimum log level
func WithLevel(level LogLevel) LoggerOption {
	return func(l *Logger) {
		if _, ok := levelRank[level]; ok {
			l.level = level
		}
	}
}

// WithService sets the service name for logs
func WithService(service string) LoggerOption {
	return func(l *Logger) {
		l.service = service
	}
}

// NewLogger creates a new Logger with the specified options
func NewLogger(opts ...LoggerOption) *Logger {
	logger := &Logger{
		output:  os.Stdout,
		level:   LevelInfo,
		service: "debtcheck",
	}

	for _, opt := range opts {
		opt(logger)
	}

	return logger
}

// With returns a child logger that attaches the given key-value pairs to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	child := &Logger{
		output:  l.output,
		level:   l.level,
		service: l.service,
		base:    make(map[string]interface{}, len(l.base)+len(fields)/2),
	}
	for k, v := range l.base {
		child.base[k] = v
	}
	mergeFields(child.base, fields)
	return child
}

// logEntry represents a structured log entry
type logEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         LogLevel               `json:"level"`
	Service       string                 `json:"service"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) write(level LogLevel, message, correlationID string, fields []interface{}) {
	if levelRank[level] < levelRank[l.level] {
		return
	}

	var fieldMap map[string]interface{}
	if len(l.base) > 0 || len(fields) > 0 {
		fieldMap = make(map[string]interface{}, len(l.base)+len(fields)/2)
		for k, v := range l.base {
			fieldMap[k] = v
		}
		mergeFields(fieldMap, fields)
	}

	entry := logEntry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level,
		Service:       l.service,
		Message:       message,
		CorrelationID: correlationID,
		Fields:        fieldMap,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	fmt.Fprintln(l.output, string(data))
	l.mu.Unlock()

	if level == LevelFatal {
		os.Exit(1)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...interface{}) {
	l.write(LevelDebug, message, "", fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...interface{}) {
	l.write(LevelInfo, message, "", fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...interface{}) {
	l.write(LevelWarn, message, "", fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...interface{}) {
	l.write(LevelError, message, "", fields)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields ...interface{}) {
	l.write(LevelFatal, message, "", fields)
}

// DebugWithContext logs a debug message with correlation ID from context
func (l *Logger) DebugWithContext(ctx context.Context, message string, fields ...interface{}) {
	l.write(LevelDebug, message, GetCorrelationID(ctx), fields)
}

// InfoWithContext logs an info message with correlation ID from context
func (l *Logger) InfoWithContext(ctx context.Context, message string, fields ...interface{}) {
	l.write(LevelInfo, message, GetCorrelationID(ctx), fields)
}

// WarnWithContext logs a warning message with correlation ID from context
func (l *Logger) WarnWithContext(ctx context.Context, message string, fields ...interface{}) {
	l.write(LevelWarn, message, GetCorrelationID(ctx), fields)
}

// ErrorWithContext logs an error message with correlation ID from context
func (l *Logger) ErrorWithContext(ctx context.Context, message string, fields ...interface{}) {
	l.write(LevelError, message, GetCorrelationID(ctx), fields)
}

// mergeFields folds key-value pairs into dst. Keys must be strings; a trailing
// key without a value is dropped.
func mergeFields(dst map[string]interface{}, fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		dst[key] = fields[i+1]
	}
}
