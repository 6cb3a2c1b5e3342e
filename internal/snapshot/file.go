package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"canales-taurinos/internal/logging"
)

// FileStore keeps one <key>.json file per source and one
// last_<key>_update.txt marker next to it.
type FileStore struct {
	dir    string
	logger logging.Logger
	mu     sync.Mutex
}

func NewFileStore(dir string, logger logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileStore{dir: dir, logger: logger.WithField("component", "snapshot_file")}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) snapshotPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) markerPath(key string) string {
	return filepath.Join(s.dir, "last_"+key+"_update.txt")
}

func (s *FileStore) Load(_ context.Context, key string) (json.RawMessage, error) {
	if err := checkKey(key); err != nil {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(s.snapshotPath(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Snapshot unreadable, treating as missing", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, ErrNotFound
	}

	if !json.Valid(data) {
		s.logger.Warn("Snapshot corrupt, treating as missing", map[string]interface{}{
			"key":  key,
			"size": len(data),
		})
		return nil, ErrNotFound
	}
	return json.RawMessage(data), nil
}

func (s *FileStore) Save(_ context.Context, key string, data interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.snapshotPath(key), payload); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) LastScheduledRun(_ context.Context, key string) (time.Time, bool) {
	if checkKey(key) != nil {
		return time.Time{}, false
	}

	data, err := os.ReadFile(s.markerPath(key))
	if err != nil {
		return time.Time{}, false
	}

	at, ok := parseMarker(string(data))
	if !ok {
		s.logger.Warn("Schedule marker unparseable, treating as never run", map[string]interface{}{
			"key": key,
		})
	}
	return at, ok
}

func (s *FileStore) MarkScheduledRun(_ context.Context, key string, at time.Time) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.markerPath(key), []byte(formatMarker(at))); err != nil {
		return fmt.Errorf("write schedule marker %s: %w", key, err)
	}
	return nil
}

// Ping checks the data directory is still writable
func (s *FileStore) Ping(_ context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *FileStore) Close() error { return nil }

// writeAtomic writes to a temp file in the same directory and renames it over
// path, so a crash leaves either the old or the new content.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
