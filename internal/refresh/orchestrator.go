// Package refresh runs one acquire-extract-persist cycle for a source and
// turns every failure into an outcome instead of an error.
package refresh

import (
	"context"
	"errors"
	"strconv"
	"time"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/retry"
	"canales-taurinos/internal/scraper"
	"canales-taurinos/internal/scraper/diagnostics"
	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/pkg/utils"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeBlocked Outcome = "blocked"
	OutcomeFailed  Outcome = "failed"
)

// Extractor turns the HTML of one page into records
type Extractor[T any] interface {
	Extract(html string) ([]T, error)
}

// Result describes one refresh cycle. Records is never nil and is empty for
// every outcome but OutcomeOK.
type Result[T any] struct {
	Records     []T
	Outcome     Outcome
	Err         error
	Attempts    int
	RunID       string
	BlockReason string
	Duration    time.Duration
}

func (r Result[T]) OK() bool { return r.Outcome == OutcomeOK }

type Options struct {
	Source        string
	FailurePolicy string
	Retry         retry.Policy
}

// OptionsFor derives orchestrator options from a source configuration
func OptionsFor(name string, sc config.SourceConfig) Options {
	return Options{
		Source:        name,
		FailurePolicy: utils.GetStringOrDefault(sc.FailurePolicy, config.PolicyPreserve),
		Retry:         retry.FromConfig(sc.Retry),
	}
}

type Orchestrator[T any] struct {
	opts      Options
	acquirer  scraper.Acquirer
	extractor Extractor[T]
	store     snapshot.Store
	recorder  *diagnostics.Recorder
	logger    logging.Logger
}

// New wires an orchestrator. recorder may be nil to disable diagnostics.
func New[T any](opts Options, acquirer scraper.Acquirer, extractor Extractor[T], store snapshot.Store, recorder *diagnostics.Recorder, logger logging.Logger) *Orchestrator[T] {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = config.PolicyPreserve
	}
	return &Orchestrator[T]{
		opts:      opts,
		acquirer:  acquirer,
		extractor: extractor,
		store:     store,
		recorder:  recorder,
		logger:    logger.WithFields(map[string]interface{}{"component": "refresh", "source": opts.Source}),
	}
}

// emptyResult carries the classification of a zero-record extraction
type emptyResult struct {
	blocked bool
	reason  string
}

func (e *emptyResult) Error() string {
	if e.blocked {
		return "page blocked: " + e.reason
	}
	return utils.ErrEmptyResult.Error()
}

func (e *emptyResult) Unwrap() error { return utils.ErrEmptyResult }

// Refresh runs the cycle and never returns an error; see Result.Outcome
func (o *Orchestrator[T]) Refresh(ctx context.Context) Result[T] {
	start := time.Now()
	runID := utils.GenerateRunID(o.opts.Source)
	log := o.logger.WithField("run_id", runID)

	log.Info("Refresh started", nil)

	var records []T
	attempts, err := retry.Do(ctx, o.opts.Retry, func(attempt int) error {
		out, err := o.attempt(ctx, runID, attempt, log)
		if err != nil {
			return err
		}
		records = out
		return nil
	}, func(err error, wait time.Duration) {
		log.Warn("Refresh attempt failed, retrying", map[string]interface{}{
			"error": err.Error(),
			"kind":  utils.ErrorKind(err),
			"wait":  utils.FormatDuration(wait),
		})
	})

	res := Result[T]{
		Records:  []T{},
		RunID:    runID,
		Attempts: attempts,
	}

	if err == nil {
		res.Records = records
		res.Outcome = OutcomeOK
		if saveErr := o.store.Save(ctx, o.opts.Source, records); saveErr != nil {
			log.Error("Failed to persist snapshot", map[string]interface{}{"error": saveErr.Error()})
		}
		res.Duration = time.Since(start)
		log.Info("Refresh completed", map[string]interface{}{
			"records":  len(records),
			"attempts": attempts,
			"duration": utils.FormatDuration(res.Duration),
		})
		return res
	}

	res.Err = err
	var empty *emptyResult
	switch {
	case errors.As(err, &empty) && empty.blocked:
		res.Outcome = OutcomeBlocked
		res.BlockReason = empty.reason
	case errors.As(err, &empty):
		res.Outcome = OutcomeEmpty
	default:
		res.Outcome = OutcomeFailed
	}

	o.applyFailurePolicy(ctx, log)
	res.Duration = time.Since(start)

	fields := map[string]interface{}{
		"outcome":  string(res.Outcome),
		"kind":     utils.ErrorKind(err),
		"error":    err.Error(),
		"attempts": attempts,
		"policy":   o.opts.FailurePolicy,
		"duration": utils.FormatDuration(res.Duration),
	}
	if res.Outcome == OutcomeFailed {
		log.Error("Refresh failed", fields)
	} else {
		log.Warn("Refresh produced no records", fields)
	}
	return res
}

// attempt performs one acquire-extract pass. The handle is released before
// returning on every path.
func (o *Orchestrator[T]) attempt(ctx context.Context, runID string, n int, log logging.Logger) (records []T, err error) {
	handle, err := o.acquirer.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := handle.Release(); relErr != nil {
			log.Warn("Failed to release handle", map[string]interface{}{"error": relErr.Error()})
		}
	}()

	html, err := handle.HTML(ctx)
	if err != nil {
		return nil, err
	}

	records, err = o.extractor.Extract(html)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if len(records) > 0 {
		return records, nil
	}

	blocked, reason := extract.DetectBlock(html)
	o.captureDiagnostics(ctx, handle, runID, n, html, blocked, reason, log)
	return nil, &emptyResult{blocked: blocked, reason: reason}
}

func (o *Orchestrator[T]) captureDiagnostics(ctx context.Context, handle scraper.Handle, runID string, n int, html string, blocked bool, reason string, log logging.Logger) {
	if o.recorder == nil {
		return
	}

	artifact := diagnostics.Artifact{
		Source: o.opts.Source,
		RunID:  runID,
		Reason: "empty",
		HTML:   html,
	}
	if n > 1 {
		artifact.RunID = runID + "-" + strconv.Itoa(n)
	}
	if blocked {
		artifact.Reason = "blocked: " + reason
	}
	if shooter, ok := handle.(scraper.Screenshotter); ok {
		shot, err := shooter.Screenshot()
		if err != nil {
			log.Debug("Screenshot capture failed", map[string]interface{}{"error": err.Error()})
		}
		artifact.Screenshot = shot
	}
	if _, err := o.recorder.Capture(ctx, artifact); err != nil {
		log.Warn("Failed to write diagnostic artifacts", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator[T]) applyFailurePolicy(ctx context.Context, log logging.Logger) {
	if o.opts.FailurePolicy != config.PolicyEmpty {
		return
	}
	if err := o.store.Save(ctx, o.opts.Source, []T{}); err != nil {
		log.Error("Failed to persist empty snapshot", map[string]interface{}{"error": err.Error()})
	}
}
