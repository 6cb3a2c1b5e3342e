// Package source binds the freshness cache, the refresh orchestrator and the
// snapshot store of one scraped source into the read path consumers use.
package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"canales-taurinos/internal/cache"
	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/refresh"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/pkg/utils"
)

// Origin tells where the records of a read came from
type Origin string

const (
	OriginCache      Origin = "cache"
	OriginSnapshot   Origin = "snapshot"
	OriginRefresh    Origin = "refresh"
	OriginStale      Origin = "stale"
	OriginFallback   Origin = "fallback"
	OriginInProgress Origin = "in_progress"
	OriginNone       Origin = "none"
)

// Refresher runs one refresh cycle; *refresh.Orchestrator satisfies it
type Refresher[T any] interface {
	Refresh(ctx context.Context) refresh.Result[T]
}

// View is the answer to a read or a forced refresh. Records is never nil.
type View[T any] struct {
	Records    []T
	State      cache.State
	Origin     Origin
	Outcome    refresh.Outcome
	RunID      string
	ComputedAt time.Time
}

// ScheduleResult reports a scheduled-run attempt
type ScheduleResult struct {
	Ran       bool
	Reason    string
	Outcome   refresh.Outcome
	Records   int
	NextDueAt time.Time
}

type lastRun struct {
	outcome refresh.Outcome
	at      time.Time
}

type Source[T any] struct {
	name      string
	cfg       config.SourceConfig
	cache     *cache.Cache[T]
	refresher Refresher[T]
	store     snapshot.Store
	logger    logging.Logger
	now       func() time.Time

	// consulted flips once the cold-start snapshot has been considered
	consulted atomic.Bool

	mu   sync.Mutex
	last *lastRun
}

func New[T any](name string, cfg config.SourceConfig, refresher Refresher[T], store snapshot.Store, logger logging.Logger) *Source[T] {
	return &Source[T]{
		name:      name,
		cfg:       cfg,
		cache:     cache.New[T](name, cfg.TTL, logger),
		refresher: refresher,
		store:     store,
		logger:    logger.WithFields(map[string]interface{}{"component": "source", "source": name}),
		now:       time.Now,
	}
}

// WithClock replaces the time source of the source and its cache
func (s *Source[T]) WithClock(now func() time.Time) *Source[T] {
	s.now = now
	s.cache.WithClock(now)
	return s
}

func (s *Source[T]) Name() string                { return s.name }
func (s *Source[T]) Config() config.SourceConfig { return s.cfg }
func (s *Source[T]) CacheState() cache.State     { return s.cache.State() }

// loader adapts the refresher to the cache. Only a successful cycle installs
// data; the result is reported through out either way.
func (s *Source[T]) loader(out *refresh.Result[T], ran *bool) cache.Loader[T] {
	return func(ctx context.Context) ([]T, error) {
		res := s.refresher.Refresh(ctx)
		*out = res
		*ran = true

		s.mu.Lock()
		s.last = &lastRun{outcome: res.Outcome, at: s.now()}
		s.mu.Unlock()

		if !res.OK() {
			if res.Err != nil {
				return nil, res.Err
			}
			return nil, utils.ErrEmptyResult
		}
		return res.Records, nil
	}
}

// GetOrRefresh is the consumer read. It serves fresh cached data, the
// on-disk snapshot on a cold start when snapshot_first is set, or refreshes.
// It never fails: an empty result means no data is available.
func (s *Source[T]) GetOrRefresh(ctx context.Context) View[T] {
	if s.cfg.SnapshotFirst && s.consulted.CompareAndSwap(false, true) && s.cache.State() == cache.Empty {
		if records := s.loadSnapshot(ctx); len(records) > 0 {
			s.cache.Put(records)
			s.logger.Info("Serving on-disk snapshot on cold start", map[string]interface{}{"records": len(records)})
			return s.view(records, OriginSnapshot, refresh.Result[T]{})
		}
	}

	var (
		res refresh.Result[T]
		ran bool
	)
	data, err := s.cache.GetOrRefresh(ctx, s.loader(&res, &ran))
	return s.resolve(ctx, data, err, res, ran)
}

// ForceRefresh bypasses the TTL. On failure it returns an empty view with
// the outcome; concurrent refreshes are not duplicated.
func (s *Source[T]) ForceRefresh(ctx context.Context) View[T] {
	var (
		res refresh.Result[T]
		ran bool
	)
	data, err := s.cache.Refresh(ctx, s.loader(&res, &ran))
	switch {
	case err == nil:
		return s.view(data, OriginRefresh, res)
	case errors.Is(err, cache.ErrRefreshInProgress):
		return s.view(data, OriginInProgress, res)
	default:
		return s.view(nil, OriginNone, res)
	}
}

func (s *Source[T]) resolve(ctx context.Context, data []T, err error, res refresh.Result[T], ran bool) View[T] {
	switch {
	case err == nil && !ran:
		return s.view(data, OriginCache, res)
	case err == nil:
		return s.view(data, OriginRefresh, res)
	case errors.Is(err, cache.ErrRefreshInProgress):
		return s.view(data, OriginInProgress, res)
	case len(data) > 0:
		return s.view(data, OriginStale, res)
	}

	// nothing in memory: the preserved snapshot is the last good answer
	if s.cfg.FailurePolicy != config.PolicyEmpty {
		if records := s.loadSnapshot(ctx); len(records) > 0 {
			s.logger.Warn("Refresh failed, serving last good snapshot", map[string]interface{}{
				"records": len(records),
				"outcome": string(res.Outcome),
			})
			return s.view(records, OriginFallback, res)
		}
	}
	return s.view(nil, OriginNone, res)
}

func (s *Source[T]) loadSnapshot(ctx context.Context) []T {
	records, err := snapshot.LoadSlice[T](ctx, s.store, s.name)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			s.logger.Warn("Failed to load snapshot", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	return records
}

func (s *Source[T]) view(records []T, origin Origin, res refresh.Result[T]) View[T] {
	if records == nil {
		records = []T{}
	}
	v := View[T]{
		Records: records,
		State:   s.cache.State(),
		Origin:  origin,
		Outcome: res.Outcome,
		RunID:   res.RunID,
	}
	if entry, ok := s.cache.Entry(); ok {
		v.ComputedAt = entry.ComputedAt
	}
	return v
}

// ClearCache drops the in-memory entry; the snapshot is untouched
func (s *Source[T]) ClearCache() {
	s.cache.Clear()
}

// RunScheduled refreshes when the minimum interval since the last successful
// scheduled run has elapsed. The marker is written only after success, so a
// skipped or failed run leaves it untouched.
func (s *Source[T]) RunScheduled(ctx context.Context) ScheduleResult {
	if !s.cfg.Scheduled {
		return ScheduleResult{Reason: "source is not scheduled"}
	}

	now := s.now()
	interval := s.cfg.MinScheduledInterval
	if last, ok := s.store.LastScheduledRun(ctx, s.name); ok && interval > 0 {
		due := last.Add(interval)
		if now.Before(due) {
			s.logger.Info("Skipping scheduled run, minimum interval not elapsed", map[string]interface{}{
				"last_run": last.Format(time.RFC3339),
				"next_due": due.Format(time.RFC3339),
			})
			return ScheduleResult{Reason: "minimum interval not elapsed", NextDueAt: due}
		}
	}

	var (
		res refresh.Result[T]
		ran bool
	)
	data, err := s.cache.Refresh(ctx, s.loader(&res, &ran))
	if errors.Is(err, cache.ErrRefreshInProgress) {
		return ScheduleResult{Reason: "refresh already in progress"}
	}

	result := ScheduleResult{Ran: true, Outcome: res.Outcome}
	if err != nil {
		result.Reason = utils.GetStringOrDefault(utils.ErrorKind(err), "failed")
		s.logger.Warn("Scheduled run failed, marker left untouched", map[string]interface{}{
			"outcome": string(res.Outcome),
			"error":   err.Error(),
		})
		return result
	}

	result.Records = len(data)
	if markErr := s.store.MarkScheduledRun(ctx, s.name, now); markErr != nil {
		s.logger.Error("Failed to write schedule marker", map[string]interface{}{"error": markErr.Error()})
	}
	if interval > 0 {
		result.NextDueAt = now.Add(interval)
	}
	s.logger.Info("Scheduled run completed", map[string]interface{}{"records": result.Records})
	return result
}

// Status summarizes the source for operators
func (s *Source[T]) Status(ctx context.Context) Status {
	st := Status{
		Name:      s.name,
		Engine:    s.cfg.Engine,
		State:     s.cache.State(),
		TTL:       s.cfg.TTL,
		Scheduled: s.cfg.Scheduled,
	}
	if entry, ok := s.cache.Entry(); ok {
		st.Records = len(entry.Data)
		st.ComputedAt = entry.ComputedAt
	}
	if s.cfg.Scheduled {
		if last, ok := s.store.LastScheduledRun(ctx, s.name); ok {
			st.LastScheduledRun = last
		}
	}

	s.mu.Lock()
	if s.last != nil {
		st.LastOutcome = s.last.outcome
		st.LastRunAt = s.last.at
	}
	s.mu.Unlock()
	return st
}

// Status is the type-independent state of a source
type Status struct {
	Name             string
	Engine           string
	State            cache.State
	Records          int
	TTL              time.Duration
	ComputedAt       time.Time
	Scheduled        bool
	LastScheduledRun time.Time
	LastOutcome      refresh.Outcome
	LastRunAt        time.Time
}
