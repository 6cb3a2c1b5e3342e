package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"canales-taurinos/pkg/models"
)

// Handle is the type-erased view of a Source used by the API, the
// scheduler and the CLI.
type Handle interface {
	Name() string
	Scheduled() bool
	Read(ctx context.Context) models.SourceResponse
	ForceRefresh(ctx context.Context) models.SourceResponse
	ClearCache()
	RunScheduled(ctx context.Context) models.ScheduleResponse
	Status(ctx context.Context) models.SourceStatus
}

type erased[T any] struct {
	*Source[T]
}

// Erase wraps a typed source as a Handle
func Erase[T any](s *Source[T]) Handle {
	return erased[T]{s}
}

func (e erased[T]) Scheduled() bool { return e.cfg.Scheduled }

func (e erased[T]) Read(ctx context.Context) models.SourceResponse {
	return toResponse(e.name, e.Source.GetOrRefresh(ctx))
}

func (e erased[T]) ForceRefresh(ctx context.Context) models.SourceResponse {
	return toResponse(e.name, e.Source.ForceRefresh(ctx))
}

func (e erased[T]) RunScheduled(ctx context.Context) models.ScheduleResponse {
	res := e.Source.RunScheduled(ctx)
	out := models.ScheduleResponse{
		Source:  e.name,
		Ran:     res.Ran,
		Reason:  res.Reason,
		Outcome: string(res.Outcome),
		Records: res.Records,
	}
	if !res.NextDueAt.IsZero() {
		due := res.NextDueAt
		out.NextDueAt = &due
	}
	return out
}

func (e erased[T]) Status(ctx context.Context) models.SourceStatus {
	st := e.Source.Status(ctx)
	out := models.SourceStatus{
		Source:      st.Name,
		Engine:      st.Engine,
		State:       st.State.String(),
		Records:     st.Records,
		TTL:         st.TTL,
		Scheduled:   st.Scheduled,
		LastOutcome: string(st.LastOutcome),
	}
	out.ComputedAt = timePtr(st.ComputedAt)
	out.LastScheduledRun = timePtr(st.LastScheduledRun)
	out.LastRunAt = timePtr(st.LastRunAt)
	return out
}

func toResponse[T any](name string, v View[T]) models.SourceResponse {
	return models.SourceResponse{
		Source:     name,
		Records:    v.Records,
		Count:      len(v.Records),
		State:      v.State.String(),
		Origin:     string(v.Origin),
		Outcome:    string(v.Outcome),
		RunID:      v.RunID,
		ComputedAt: timePtr(v.ComputedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Registry holds the sources of the process by name
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Handle)}
}

func (r *Registry) Register(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[h.Name()]; exists {
		return fmt.Errorf("source %q already registered", h.Name())
	}
	r.sources[h.Name()] = h
	return nil
}

func (r *Registry) Get(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sources[name]
	return h, ok
}

// Names returns the registered names in lexical order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every handle ordered by name
func (r *Registry) All() []Handle {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(names))
	for _, name := range names {
		out = append(out, r.sources[name])
	}
	return out
}

// Scheduled returns the handles taking part in scheduled runs
func (r *Registry) Scheduled() []Handle {
	var out []Handle
	for _, h := range r.All() {
		if h.Scheduled() {
			out = append(out, h)
		}
	}
	return out
}
