package logging

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"canales-taurinos/internal/logging/types"
)

// adapterSet is shared by a logger and every child derived with WithField
type adapterSet struct {
	mu       sync.RWMutex
	adapters map[string]types.LogAdapter
}

func (s *adapterSet) snapshot() []types.LogAdapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.LogAdapter, 0, len(names))
	for _, name := range names {
		out = append(out, s.adapters[name])
	}
	return out
}

// MultiLogger fans every entry out to all registered adapters
type MultiLogger struct {
	set     *adapterSet
	level   LogLevel
	levelMu sync.RWMutex
	context context.Context
	fields  Fields
	now     func() time.Time
}

// NewMultiLogger creates a logger at info level with no adapters
func NewMultiLogger() *MultiLogger {
	return &MultiLogger{
		set:     &adapterSet{adapters: make(map[string]types.LogAdapter)},
		level:   InfoLevel,
		context: context.Background(),
		fields:  make(Fields),
		now:     time.Now,
	}
}

// NewNopLogger returns a logger that drops everything. Used by tests and
// by components constructed without an explicit logger.
func NewNopLogger() Logger {
	l := NewMultiLogger()
	l.SetLevel(SilentLevel)
	return l
}

func (l *MultiLogger) Debug(message string, fields ...Fields) {
	l.Log(DebugLevel, message, fields...)
}

func (l *MultiLogger) Info(message string, fields ...Fields) {
	l.Log(InfoLevel, message, fields...)
}

func (l *MultiLogger) Warn(message string, fields ...Fields) {
	l.Log(WarnLevel, message, fields...)
}

func (l *MultiLogger) Error(message string, fields ...Fields) {
	l.Log(ErrorLevel, message, fields...)
}

// Fatal logs, flushes adapters and exits the process
func (l *MultiLogger) Fatal(message string, fields ...Fields) {
	l.Log(FatalLevel, message, fields...)
	_ = l.Close()
	os.Exit(1)
}

func (l *MultiLogger) Log(level LogLevel, message string, fields ...Fields) {
	if level < l.GetLevel() {
		return
	}

	entry := &types.LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: l.now(),
		Context:   l.context,
		Fields:    l.mergeFields(fields...),
	}

	for _, adapter := range l.set.snapshot() {
		if err := adapter.Write(entry); err != nil {
			// stderr only, never back through the logger
			fmt.Fprintf(os.Stderr, "logging adapter %s error: %v\n", adapter.Name(), err)
		}
	}
}

func (l *MultiLogger) WithContext(ctx context.Context) Logger {
	child := l.derive(l.copyFields())
	child.context = ctx
	return child
}

func (l *MultiLogger) WithField(key string, value interface{}) Logger {
	fields := l.copyFields()
	fields[key] = value
	return l.derive(fields)
}

func (l *MultiLogger) WithFields(fields Fields) Logger {
	merged := l.copyFields()
	for k, v := range fields {
		merged[k] = v
	}
	return l.derive(merged)
}

func (l *MultiLogger) SetLevel(level LogLevel) {
	l.levelMu.Lock()
	defer l.levelMu.Unlock()
	l.level = level
}

func (l *MultiLogger) GetLevel() LogLevel {
	l.levelMu.RLock()
	defer l.levelMu.RUnlock()
	return l.level
}

func (l *MultiLogger) AddAdapter(adapter types.LogAdapter) error {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()

	name := adapter.Name()
	if _, exists := l.set.adapters[name]; exists {
		return fmt.Errorf("adapter %s already exists", name)
	}
	l.set.adapters[name] = adapter
	return nil
}

func (l *MultiLogger) RemoveAdapter(adapterName string) error {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()

	adapter, exists := l.set.adapters[adapterName]
	if !exists {
		return fmt.Errorf("adapter %s not found", adapterName)
	}
	delete(l.set.adapters, adapterName)

	if err := adapter.Close(); err != nil {
		return fmt.Errorf("failed to close adapter %s: %w", adapterName, err)
	}
	return nil
}

// Close closes every adapter and reports all failures at once
func (l *MultiLogger) Close() error {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()

	var failures []string
	for name, adapter := range l.set.adapters {
		if err := adapter.Close(); err != nil {
			failures = append(failures, fmt.Sprintf("adapter %s: %v", name, err))
		}
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		return fmt.Errorf("failed to close adapters: %s", strings.Join(failures, ", "))
	}
	return nil
}

func (l *MultiLogger) derive(fields Fields) *MultiLogger {
	return &MultiLogger{
		set:     l.set,
		level:   l.GetLevel(),
		context: l.context,
		fields:  fields,
		now:     l.now,
	}
}

func (l *MultiLogger) copyFields() Fields {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return fields
}

func (l *MultiLogger) mergeFields(extra ...Fields) Fields {
	fields := l.copyFields()
	for _, m := range extra {
		for k, v := range m {
			fields[k] = v
		}
	}
	return fields
}
