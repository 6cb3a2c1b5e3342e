// Package types holds the logging contracts shared by the logger, its
// adapters and the config loader. It imports nothing from the project so
// all three can depend on it without a cycle.
package types

import (
	"context"
	"sort"
	"strings"
	"time"
)

// LogLevel orders entries by severity. A logger drops anything below its level.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel

	// SilentLevel sits above every severity and mutes a logger
	SilentLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel:  "debug",
	InfoLevel:   "info",
	WarnLevel:   "warn",
	ErrorLevel:  "error",
	FatalLevel:  "fatal",
	SilentLevel: "silent",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return levelNames[InfoLevel]
}

// Label is the upper-case form printed by the text format
func (l LogLevel) Label() string {
	return strings.ToUpper(l.String())
}

// ParseLevel reads LOG_LEVEL style values. "warning" and "off" are accepted
// as aliases; blanks and unknown names fall back to info.
func ParseLevel(s string) LogLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "warning":
		return WarnLevel
	case "off", "none":
		return SilentLevel
	}
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return InfoLevel
}

// Fields is the structured payload attached to a log call
type Fields = map[string]interface{}

// LogEntry is what every adapter receives for one log call
type LogEntry struct {
	Level     LogLevel        `json:"level"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Fields    Fields          `json:"fields,omitempty"`
	Context   context.Context `json:"-"`
}

// FieldKeys returns the field names in sorted order so text lines are stable
func (e *LogEntry) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LogAdapter is one output: stdout, a rotating file
type LogAdapter interface {
	Write(entry *LogEntry) error
	Close() error
	Health() error
	Name() string
}

// Logger is injected into every scraper, store and handler. Children made
// with WithField share their parent's adapters.
type Logger interface {
	Debug(message string, fields ...Fields)
	Info(message string, fields ...Fields)
	Warn(message string, fields ...Fields)
	Error(message string, fields ...Fields)
	Fatal(message string, fields ...Fields)
	Log(level LogLevel, message string, fields ...Fields)

	WithContext(ctx context.Context) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger

	SetLevel(level LogLevel)
	GetLevel() LogLevel

	AddAdapter(adapter LogAdapter) error
	RemoveAdapter(adapterName string) error
	Close() error
}

// AdapterConfig is one entry of logging.adapters in config.yaml. Type is
// "stdout" or "file"; Options are passed through to that adapter.
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}
