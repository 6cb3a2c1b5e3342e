// Package retry runs an operation a bounded number of times with fixed or
// exponential spacing.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"canales-taurinos/internal/config"
)

// Policy bounds how often and how far apart an operation is retried.
// MaxAttempts counts the first try; 1 disables retrying.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Exponential bool
	MaxDelay    time.Duration
}

// FromConfig converts a source's retry block
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.Delay,
		Exponential: cfg.Backoff == "exponential",
		MaxDelay:    time.Minute,
	}
}

// Permanent wraps err so Do stops immediately and returns err unwrapped
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Exponential {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Delay
		if p.MaxDelay > 0 {
			exp.MaxInterval = p.MaxDelay
		}
		exp.MaxElapsedTime = 0
		b = exp
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do calls op until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. op receives the 1-based attempt number. notify, when
// set, is called before each wait. The returned count is the number of
// attempts made.
func Do(ctx context.Context, p Policy, op func(attempt int) error, notify func(err error, wait time.Duration)) (int, error) {
	attempt := 0
	operation := func() error {
		attempt++
		return op(attempt)
	}

	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) { notify(err, wait) }
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), n)
	return attempt, err
}
