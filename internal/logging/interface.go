package logging

import "canales-taurinos/internal/logging/types"

type LogLevel = types.LogLevel
type LogEntry = types.LogEntry
type LogAdapter = types.LogAdapter
type Logger = types.Logger
type AdapterConfig = types.AdapterConfig
type Fields = types.Fields

const (
	DebugLevel  = types.DebugLevel
	InfoLevel   = types.InfoLevel
	WarnLevel   = types.WarnLevel
	ErrorLevel  = types.ErrorLevel
	FatalLevel  = types.FatalLevel
	SilentLevel = types.SilentLevel
)

// ParseLogLevel maps a config string onto a level, defaulting to info
func ParseLogLevel(levelStr string) LogLevel {
	return types.ParseLevel(levelStr)
}
