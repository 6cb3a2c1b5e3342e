// Package background drives the scheduled refresh of sources that opt in,
// standing in for the external caller that triggers RunScheduled.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/refresh"
	"canales-taurinos/internal/source"
)

const (
	DefaultInterval   = 24 * time.Hour
	DefaultRunTimeout = 10 * time.Minute
	MinInterval       = time.Minute

	historyLimit  = 200
	historyMaxAge = 30 * 24 * time.Hour
)

// Targets returns the sources taking part in scheduled runs;
// *source.Registry implements it
type Targets interface {
	Scheduled() []source.Handle
}

// Scheduler calls RunScheduled on every scheduled source at a fixed cadence.
// Sources are visited one at a time so at most one browser run is active.
type Scheduler struct {
	targets    Targets
	interval   time.Duration
	runTimeout time.Duration
	store      *RunStore
	completion *RunCompletionLogger
	logger     logging.Logger
	now        func() time.Time

	mu      sync.Mutex
	sweep   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// validateSchedulerConfig returns safe interval and timeout values
func validateSchedulerConfig(cfg config.SchedulerConfig) (interval, runTimeout time.Duration, err error) {
	interval = cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	} else if interval < MinInterval {
		return 0, 0, fmt.Errorf("scheduler interval (%s) is below minimum (%s)", interval, MinInterval)
	}

	runTimeout = cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return interval, runTimeout, nil
}

func NewScheduler(cfg config.SchedulerConfig, targets Targets, logger logging.Logger) *Scheduler {
	logger = logger.WithField("component", "scheduler")

	interval, runTimeout, err := validateSchedulerConfig(cfg)
	if err != nil {
		logger.Warn("Scheduler configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		interval, runTimeout = DefaultInterval, DefaultRunTimeout
	}

	logger.Info("Scheduler configuration initialized", map[string]interface{}{
		"interval":       interval.String(),
		"run_timeout":    runTimeout.String(),
		"using_defaults": err != nil,
	})

	return &Scheduler{
		targets:    targets,
		interval:   interval,
		runTimeout: runTimeout,
		store:      NewRunStore(historyLimit),
		completion: NewRunCompletionLogger(logger),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Scheduler) Interval() time.Duration { return s.interval }
func (s *Scheduler) History() *RunStore      { return s.store }

// Start sweeps once right away, then on every tick. Sources whose minimum
// interval has not elapsed skip themselves, so the early sweep is harmless.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Scheduler started", map[string]interface{}{
		"sources": len(s.targets.Scheduled()),
	})
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
			if removed := s.store.Cleanup(s.now(), historyMaxAge); removed > 0 {
				s.logger.Debug("Pruned scheduled run history", map[string]interface{}{"removed": removed})
			}
		}
	}
}

// Stop cancels the loop and waits for the current run, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info("Stopping scheduler...", nil)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully", nil)
	case <-ctx.Done():
		s.logger.Warn("Scheduler shutdown timed out", nil)
	}

	s.running = false
	return nil
}

// IsHealthy reports whether the loop is running
func (s *Scheduler) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sweep runs every scheduled source once and returns the records in order.
// Overlapping sweeps are serialized.
func (s *Scheduler) Sweep(ctx context.Context) []RunRecord {
	s.sweep.Lock()
	defer s.sweep.Unlock()

	targets := s.targets.Scheduled()
	records := make([]RunRecord, 0, len(targets))
	for _, h := range targets {
		if ctx.Err() != nil {
			break
		}
		records = append(records, s.runOne(ctx, h))
	}
	return records
}

func (s *Scheduler) runOne(ctx context.Context, h source.Handle) RunRecord {
	record := RunRecord{
		RunID:     uuid.New().String(),
		Source:    h.Name(),
		StartedAt: s.now(),
	}
	s.completion.LogRunStart(record.RunID, record.Source)

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	res := h.RunScheduled(runCtx)
	cancel()

	record.CompletedAt = s.now()
	record.ProcessingTime = record.CompletedAt.Sub(record.StartedAt)
	record.Reason = res.Reason
	record.Outcome = res.Outcome
	record.Records = res.Records
	record.NextDueAt = res.NextDueAt

	switch {
	case !res.Ran:
		record.Status = RunStatusSkipped
	case res.Outcome == string(refresh.OutcomeOK):
		record.Status = RunStatusSuccess
	default:
		record.Status = RunStatusFailure
	}

	s.store.Add(record)
	if err := s.completion.LogRunCompletion(record); err != nil {
		s.logger.Error("Failed to log run completion", map[string]interface{}{"error": err.Error()})
	}
	return record
}
