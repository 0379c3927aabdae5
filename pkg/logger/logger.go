// Package logger provides the structured logger used across the AdPulse
// platform. Output is leveled, optionally JSON-formatted, and carries
// service identity plus request/tenant context fields.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// DebugLevel logs debug messages
	DebugLevel LogLevel = iota
	// InfoLevel logs info messages
	InfoLevel
	// WarnLevel logs warning messages
	WarnLevel
	// ErrorLevel logs error messages
	ErrorLevel
	// FatalLevel logs fatal messages and exits
	FatalLevel
)

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a log level from string
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// LogFormat represents the output format
type LogFormat int

const (
	// TextFormat outputs logs in human-readable text format
	TextFormat LogFormat = iota
	// JSONFormat outputs logs in JSON format
	JSONFormat
)

// Config represents logger configuration
type Config struct {
	Level        LogLevel               `yaml:"level" json:"level"`
	Format       LogFormat              `yaml:"format" json:"format"`
	Output       io.Writer              `yaml:"-" json:"-"`
	Service      string                 `yaml:"service" json:"service"`
	Version      string                 `yaml:"version" json:"version"`
	EnableCaller bool                   `yaml:"enable_caller" json:"enable_caller"`
	Fields       map[string]interface{} `yaml:"fields" json:"fields"`
}

// Logger represents a structured logger
type Logger struct {
	level        LogLevel
	format       LogFormat
	output       io.Writer
	fields       map[string]interface{}
	service      string
	version      string
	enableCaller bool
}

// entry is the serialized form of a single log line
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Service   string                 `json:"service,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// NewLogger creates a new structured logger
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = &Config{Level: InfoLevel, Format: JSONFormat}
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Fields == nil {
		config.Fields = make(map[string]interface{})
	}

	return &Logger{
		level:        config.Level,
		format:       config.Format,
		output:       config.Output,
		fields:       config.Fields,
		service:      config.Service,
		version:      config.Version,
		enableCaller: config.EnableCaller,
	}
}

// NewDefaultLogger creates a JSON logger identified by service and version
func NewDefaultLogger(service, version string) *Logger {
	return NewLogger(&Config{
		Level:   InfoLevel,
		Format:  JSONFormat,
		Output:  os.Stdout,
		Service: service,
		Version: version,
	})
}

func (l *Logger) clone(extra map[string]interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	out := *l
	out.fields = fields
	return &out
}

// WithField returns a logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.clone(map[string]interface{}{key: value})
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.clone(fields)
}

// WithError returns a logger carrying the error message as a field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.clone(map[string]interface{}{"error": err.Error()})
}

// Context keys recognized by WithContext.
var contextFieldKeys = []string{"request_id", "tenant_id", "user_id", "trace_id"}

// WithContext returns a logger carrying request/tenant identifiers found in
// the context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	extra := make(map[string]interface{})
	for _, key := range contextFieldKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			extra[key] = v
		}
	}
	if len(extra) == 0 {
		return l
	}
	return l.clone(extra)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

// Info logs an info message
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, args ...interface{}) {
	l.log(FatalLevel, message, args...)
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, message string, args ...interface{}) {
	if level < l.level {
		return
	}
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
		Service:   l.service,
		Version:   l.version,
	}
	if len(l.fields) > 0 {
		e.Fields = l.fields
	}
	if l.enableCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			parts := strings.Split(file, "/")
			e.Caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
		}
	}

	switch l.format {
	case JSONFormat:
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(l.output, "logger: failed to marshal entry: %v\n", err)
			return
		}
		fmt.Fprintln(l.output, string(data))
	default:
		fmt.Fprintln(l.output, formatText(e))
	}
}

func formatText(e entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", e.Timestamp, e.Level)
	if e.Service != "" {
		fmt.Fprintf(&b, " %s", e.Service)
	}
	if e.Caller != "" {
		fmt.Fprintf(&b, " %s", e.Caller)
	}
	fmt.Fprintf(&b, " %s", e.Message)

	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}
	return b.String()
}
