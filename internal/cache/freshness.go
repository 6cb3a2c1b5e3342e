// Package cache holds the last good result of a source in memory for a
// fixed time-to-live.
package cache

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"canales-taurinos/internal/logging"
)

// ErrRefreshInProgress is returned alongside the current data when another
// caller is already refreshing.
var ErrRefreshInProgress = errors.New("refresh already in progress")

type State int

const (
	Empty State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

// Entry is one computed result. It is replaced as a whole, never edited.
type Entry[T any] struct {
	Data       []T
	ComputedAt time.Time
}

// Loader computes a new result. A non-nil error leaves the cache untouched.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Cache is a TTL cache for one source with at most one refresh in flight
type Cache[T any] struct {
	name   string
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger

	mu         sync.Mutex
	entry      *Entry[T]
	refreshing bool
}

func New[T any](name string, ttl time.Duration, logger logging.Logger) *Cache[T] {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Cache[T]{
		name:   name,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithFields(map[string]interface{}{"component": "cache", "source": name}),
	}
}

// WithClock replaces the time source, for tests
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.now = now
	return c
}

func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// State reports EMPTY, FRESH or STALE at the current time
func (c *Cache[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Cache[T]) stateLocked() State {
	if c.entry == nil {
		return Empty
	}
	if c.now().Sub(c.entry.ComputedAt) < c.ttl {
		return Fresh
	}
	return Stale
}

// Entry returns a copy of the current entry, if any
func (c *Cache[T]) Entry() (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return Entry[T]{}, false
	}
	return Entry[T]{Data: slices.Clone(c.entry.Data), ComputedAt: c.entry.ComputedAt}, true
}

// GetOrRefresh returns the cached data while fresh. Otherwise it runs load,
// unless a refresh is already running, in which case the current data (stale
// or nil) is returned with ErrRefreshInProgress.
func (c *Cache[T]) GetOrRefresh(ctx context.Context, load Loader[T]) ([]T, error) {
	c.mu.Lock()
	if c.stateLocked() == Fresh {
		data := slices.Clone(c.entry.Data)
		c.mu.Unlock()
		return data, nil
	}
	if c.refreshing {
		data := c.currentLocked()
		c.mu.Unlock()
		c.logger.Info("Refresh already in progress, serving current data", map[string]interface{}{
			"records": len(data),
		})
		return data, ErrRefreshInProgress
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.run(ctx, load)
}

// Refresh runs load regardless of freshness, still honoring the in-flight guard
func (c *Cache[T]) Refresh(ctx context.Context, load Loader[T]) ([]T, error) {
	c.mu.Lock()
	if c.refreshing {
		data := c.currentLocked()
		c.mu.Unlock()
		c.logger.Info("Refresh already in progress, skipping forced refresh", nil)
		return data, ErrRefreshInProgress
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.run(ctx, load)
}

func (c *Cache[T]) run(ctx context.Context, load Loader[T]) ([]T, error) {
	finished := false
	defer func() {
		// only reached with finished unset when load panics
		if !finished {
			c.mu.Lock()
			c.refreshing = false
			c.mu.Unlock()
		}
	}()

	data, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	finished = true
	c.refreshing = false

	if err != nil {
		return c.currentLocked(), err
	}
	c.entry = c.newEntry(data)
	return slices.Clone(data), nil
}

// Put installs data as a fresh entry
func (c *Cache[T]) Put(data []T) {
	entry := c.newEntry(data)
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()
}

func (c *Cache[T]) newEntry(data []T) *Entry[T] {
	entry := &Entry[T]{Data: slices.Clone(data), ComputedAt: c.now()}
	if entry.Data == nil {
		entry.Data = []T{}
	}
	return entry
}

// Clear drops the entry; the next read refreshes
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.logger.Info("Cache cleared", nil)
}

func (c *Cache[T]) currentLocked() []T {
	if c.entry == nil {
		return nil
	}
	return slices.Clone(c.entry.Data)
}
