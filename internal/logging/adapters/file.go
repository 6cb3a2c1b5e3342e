package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"canales-taurinos/internal/logging/types"
)

// FileAdapter appends entries to a file and rotates it by size
type FileAdapter struct {
	name   string
	config FileConfig
	file   *os.File
	size   int64
	mu     sync.Mutex
}

// FileConfig configures the file adapter
type FileConfig struct {
	FilePath   string `yaml:"file_path"`
	Format     string `yaml:"format"`      // json or text
	MaxSize    int64  `yaml:"max_size"`    // bytes, 0 disables rotation
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
}

func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for file adapter")
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = 5
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	a := &FileAdapter{name: name, config: config}
	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *FileAdapter) Write(entry *types.LogEntry) error {
	var line string
	if strings.ToLower(a.config.Format) == "text" {
		line = formatText(entry, entry.Level.Label())
	} else {
		var err error
		if line, err = formatJSON(entry); err != nil {
			return fmt.Errorf("failed to format log entry: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("file adapter %s is closed", a.name)
	}
	if a.config.MaxSize > 0 && a.size+int64(len(line)+1) > a.config.MaxSize {
		if err := a.rotate(); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	n, err := a.file.WriteString(line + "\n")
	a.size += int64(n)
	return err
}

func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

func (a *FileAdapter) Health() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return fmt.Errorf("file adapter %s is closed", a.name)
	}
	return nil
}

func (a *FileAdapter) Name() string { return a.name }

func (a *FileAdapter) open() error {
	f, err := os.OpenFile(a.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	a.file = f
	a.size = info.Size()
	return nil
}

// rotate renames the current file with a timestamp suffix and prunes old backups
func (a *FileAdapter) rotate() error {
	if err := a.file.Close(); err != nil {
		return err
	}
	backup := fmt.Sprintf("%s.%s", a.config.FilePath, time.Now().Format("20060102T150405.000"))
	if err := os.Rename(a.config.FilePath, backup); err != nil {
		return err
	}
	if err := a.open(); err != nil {
		return err
	}

	matches, err := filepath.Glob(a.config.FilePath + ".*")
	if err != nil || len(matches) <= a.config.MaxBackups {
		return nil
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-a.config.MaxBackups] {
		_ = os.Remove(old)
	}
	return nil
}
