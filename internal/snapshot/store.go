// Package snapshot persists the last good extraction of every source and the
// timestamp of its last scheduled run.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned for missing and for unreadable snapshots alike
var ErrNotFound = errors.New("snapshot not found")

// Store is the persistence contract shared by the file and redis backends.
// Save replaces the whole value; readers never observe a partial write.
type Store interface {
	Load(ctx context.Context, key string) (json.RawMessage, error)
	Save(ctx context.Context, key string, data interface{}) error
	LastScheduledRun(ctx context.Context, key string) (time.Time, bool)
	MarkScheduledRun(ctx context.Context, key string, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

// LoadSlice loads key and decodes it as a JSON array. A value of the wrong
// shape counts as corrupt and yields ErrNotFound.
func LoadSlice[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, key, err)
	}
	return out, nil
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid snapshot key %q", key)
	}
	return nil
}

const markerLayout = "2006-01-02T15:04:05.000Z07:00"

func formatMarker(at time.Time) string {
	return at.UTC().Format(markerLayout)
}

// parseMarker accepts ISO-8601 timestamps and bare unix milliseconds
func parseMarker(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}
