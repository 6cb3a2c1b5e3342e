package adapters

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"canales-taurinos/internal/logging/types"
)

// StdoutAdapter writes entries to stdout (or any writer) as json or text
type StdoutAdapter struct {
	name      string
	format    string
	colorized bool
	out       io.Writer
	mu        sync.Mutex
}

// StdoutConfig configures the stdout adapter
type StdoutConfig struct {
	Format    string    `yaml:"format"`    // json or text
	Colorized bool      `yaml:"colorized"` // ANSI level colors, text format only
	Writer    io.Writer `yaml:"-"`
}

func NewStdoutAdapter(name string, config StdoutConfig) *StdoutAdapter {
	out := config.Writer
	if out == nil {
		out = os.Stdout
	}
	return &StdoutAdapter{
		name:      name,
		format:    strings.ToLower(config.Format),
		colorized: config.Colorized,
		out:       out,
	}
}

func (a *StdoutAdapter) Write(entry *types.LogEntry) error {
	var line string
	if a.format == "text" {
		level := entry.Level.Label()
		if a.colorized {
			level = colorizeLevel(level)
		}
		line = formatText(entry, level)
	} else {
		var err error
		if line, err = formatJSON(entry); err != nil {
			return fmt.Errorf("failed to format log entry: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintln(a.out, line)
	return err
}

func (a *StdoutAdapter) Close() error  { return nil }
func (a *StdoutAdapter) Health() error { return nil }
func (a *StdoutAdapter) Name() string  { return a.name }

func colorizeLevel(level string) string {
	const (
		red    = "\033[31m"
		yellow = "\033[33m"
		blue   = "\033[34m"
		gray   = "\033[90m"
		reset  = "\033[0m"
	)

	switch level {
	case "DEBUG":
		return gray + level + reset
	case "INFO":
		return blue + level + reset
	case "WARN":
		return yellow + level + reset
	case "ERROR", "FATAL":
		return red + level + reset
	default:
		return level
	}
}
