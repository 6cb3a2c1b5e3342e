package background

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/models"
)

type fakeHandle struct {
	name string
	res  models.ScheduleResponse

	mu       sync.Mutex
	calls    int
	deadline bool
}

func (h *fakeHandle) Name() string    { return h.name }
func (h *fakeHandle) Scheduled() bool { return true }
func (h *fakeHandle) Read(context.Context) models.SourceResponse {
	return models.SourceResponse{Source: h.name}
}
func (h *fakeHandle) ForceRefresh(context.Context) models.SourceResponse {
	return models.SourceResponse{Source: h.name}
}
func (h *fakeHandle) ClearCache() {}
func (h *fakeHandle) Status(context.Context) models.SourceStatus {
	return models.SourceStatus{Source: h.name}
}

func (h *fakeHandle) RunScheduled(ctx context.Context) models.ScheduleResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	_, h.deadline = ctx.Deadline()
	res := h.res
	res.Source = h.name
	return res
}

func (h *fakeHandle) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type targets []source.Handle

func (t targets) Scheduled() []source.Handle { return t }

func newScheduler(t *testing.T, handles ...source.Handle) (*Scheduler, *bytes.Buffer) {
	t.Helper()
	s := NewScheduler(config.SchedulerConfig{Interval: time.Hour, RunTimeout: time.Minute}, targets(handles), logging.NewNopLogger())
	var out bytes.Buffer
	s.completion.out = &out
	return s, &out
}

func TestSweepClassifiesRuns(t *testing.T) {
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ran := &fakeHandle{name: "escalafon", res: models.ScheduleResponse{Ran: true, Outcome: "ok", Records: 40, NextDueAt: &due}}
	skipped := &fakeHandle{name: "skipped", res: models.ScheduleResponse{Reason: "minimum interval not elapsed"}}
	failed := &fakeHandle{name: "broken", res: models.ScheduleResponse{Ran: true, Outcome: "blocked", Reason: "empty"}}

	s, out := newScheduler(t, ran, skipped, failed)
	records := s.Sweep(context.Background())

	require.Len(t, records, 3)
	require.Equal(t, RunStatusSuccess, records[0].Status)
	require.Equal(t, 40, records[0].Records)
	require.Equal(t, &due, records[0].NextDueAt)
	require.Equal(t, RunStatusSkipped, records[1].Status)
	require.Equal(t, RunStatusFailure, records[2].Status)
	require.Equal(t, "blocked", records[2].Outcome)
	require.True(t, ran.deadline, "each run gets its own timeout")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	var first RunCompletionLog
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, "escalafon", first.Source)
	require.Equal(t, "SUCCESS", first.Status)
	require.Equal(t, "scheduled_refresh", first.Operation)

	last, found := s.History().Last("broken")
	require.True(t, found)
	require.Equal(t, RunStatusFailure, last.Status)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	h := &fakeHandle{name: "escalafon"}
	s, _ := newScheduler(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, s.Sweep(ctx))
	require.Zero(t, h.callCount())
}

func TestStartSweepsImmediatelyAndStops(t *testing.T) {
	h := &fakeHandle{name: "escalafon", res: models.ScheduleResponse{Ran: true, Outcome: "ok"}}
	s, _ := newScheduler(t, h)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))
	require.True(t, s.IsHealthy())

	require.Eventually(t, func() bool { return h.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.False(t, s.IsHealthy())
	require.NoError(t, s.Stop(ctx))
}

func TestValidateSchedulerConfig(t *testing.T) {
	interval, timeout, err := validateSchedulerConfig(config.SchedulerConfig{})
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, interval)
	require.Equal(t, DefaultRunTimeout, timeout)

	_, _, err = validateSchedulerConfig(config.SchedulerConfig{Interval: time.Second})
	require.Error(t, err)

	s := NewScheduler(config.SchedulerConfig{Interval: time.Second}, targets{}, logging.NewNopLogger())
	require.Equal(t, DefaultInterval, s.Interval())
}

func TestRunStore(t *testing.T) {
	store := NewRunStore(2)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		store.Add(RunRecord{Source: name, StartedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	recent := store.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].Source)
	require.Equal(t, "b", recent[1].Source)

	_, found := store.Last("a")
	require.False(t, found)

	removed := store.Cleanup(base.Add(3*time.Hour), 90*time.Minute)
	require.Equal(t, 1, removed)
	require.Len(t, store.Recent(), 1)
}
