package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"canales-taurinos/internal/config"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 3}, func(int) error { return nil }, nil)
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var waits []time.Duration
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond},
		func(attempt int) error {
			if attempt < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func(_ error, wait time.Duration) { waits = append(waits, wait) },
	)
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Len(t, waits, 2)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	boom := errors.New("down")
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 2}, func(int) error { return boom }, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, attempts)
}

func TestDoSingleAttemptByDefault(t *testing.T) {
	attempts, err := Do(context.Background(), Policy{}, func(int) error { return errors.New("x") }, nil)
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	boom := errors.New("unparseable")
	attempts, err := Do(context.Background(), Policy{MaxAttempts: 5}, func(int) error { return Permanent(boom) }, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, attempts)
}

func TestDoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := Do(ctx, Policy{MaxAttempts: 5, Delay: time.Hour}, func(int) error { return errors.New("x") }, nil)
	require.Error(t, err)
	require.LessOrEqual(t, attempts, 1)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.RetryConfig{MaxAttempts: 4, Delay: time.Second, Backoff: "exponential"})
	require.Equal(t, 4, p.MaxAttempts)
	require.True(t, p.Exponential)
	require.False(t, FromConfig(config.RetryConfig{Backoff: "fixed"}).Exponential)
}
