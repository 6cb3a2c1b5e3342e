package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"canales-taurinos/internal/logging"
)

// ErrCircuitOpen is returned while a domain is cooling down after repeated failures
var ErrCircuitOpen = errors.New("circuit open")

// CircuitState represents the state of a domain circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// LimiterConfig configures per-domain throttling
type LimiterConfig struct {
	// PerMinute is the sustained request rate per domain
	PerMinute int
	Burst     int
	// Threshold consecutive failures open the circuit; zero disables breaking
	Threshold int
	Reset     time.Duration
}

type domainState struct {
	limiter  *rate.Limiter
	failures int
	openedAt time.Time
	state    CircuitState
	requests int64
}

// DomainStats is a point-in-time view of one domain
type DomainStats struct {
	Domain   string
	Requests int64
	Failures int
	State    CircuitState
}

// DomainLimiter throttles requests per domain and fails fast for domains that
// keep failing until the reset window has elapsed.
type DomainLimiter struct {
	cfg     LimiterConfig
	mu      sync.Mutex
	domains map[string]*domainState
	now     func() time.Time
	logger  logging.Logger
}

func NewDomainLimiter(cfg LimiterConfig, logger logging.Logger) *DomainLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Reset <= 0 {
		cfg.Reset = time.Minute
	}
	return &DomainLimiter{
		cfg:     cfg,
		domains: make(map[string]*domainState),
		now:     time.Now,
		logger:  logger.WithField("component", "domain_limiter"),
	}
}

// Wait blocks until a request to domain may proceed. It returns ErrCircuitOpen
// without waiting when the domain circuit is open.
func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	domain = strings.ToLower(domain)

	l.mu.Lock()
	d := l.domainLocked(domain)
	if d.state == CircuitOpen {
		if l.now().Sub(d.openedAt) < l.cfg.Reset {
			l.mu.Unlock()
			return fmt.Errorf("%s: %w", domain, ErrCircuitOpen)
		}
		d.state = CircuitHalfOpen
		l.logger.Info("Circuit breaker half-open", map[string]interface{}{"domain": domain})
	}
	d.requests++
	limiter := d.limiter
	l.mu.Unlock()

	return limiter.Wait(ctx)
}

// RecordSuccess closes the domain circuit and resets its failure count
func (l *DomainLimiter) RecordSuccess(domain string) {
	domain = strings.ToLower(domain)

	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.domainLocked(domain)
	if d.state != CircuitClosed {
		l.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{"domain": domain})
	}
	d.state = CircuitClosed
	d.failures = 0
}

// RecordFailure counts a failure and opens the circuit once the threshold is
// reached. A failure while half-open reopens it immediately.
func (l *DomainLimiter) RecordFailure(domain string, err error) {
	domain = strings.ToLower(domain)

	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.domainLocked(domain)
	d.failures++
	if l.cfg.Threshold <= 0 {
		return
	}
	if d.state == CircuitHalfOpen || (d.state == CircuitClosed && d.failures >= l.cfg.Threshold) {
		d.state = CircuitOpen
		d.openedAt = l.now()
		fields := map[string]interface{}{
			"domain":   domain,
			"failures": d.failures,
			"reset":    l.cfg.Reset.String(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		l.logger.Warn("Circuit breaker opened due to failures", fields)
	}
}

// Stats returns the current state of a domain
func (l *DomainLimiter) Stats(domain string) DomainStats {
	domain = strings.ToLower(domain)

	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.domains[domain]
	if !ok {
		return DomainStats{Domain: domain, State: CircuitClosed}
	}
	return DomainStats{Domain: domain, Requests: d.requests, Failures: d.failures, State: d.state}
}

func (l *DomainLimiter) domainLocked(domain string) *domainState {
	if d, ok := l.domains[domain]; ok {
		return d
	}
	rps := rate.Limit(float64(l.cfg.PerMinute) / 60.0)
	d := &domainState{limiter: rate.NewLimiter(rps, l.cfg.Burst)}
	l.domains[domain] = d

	l.logger.Debug("Created domain rate limiter", map[string]interface{}{
		"domain": domain,
		"rate":   float64(rps),
		"burst":  l.cfg.Burst,
	})
	return d
}
