package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/retry"
)

func TestNewValidation(t *testing.T) {
	_, err := retry.New(0, time.Millisecond)
	assert.ErrorIs(t, err, retry.ErrBadMaxAttempts)

	_, err = retry.New(3, -time.Millisecond)
	assert.ErrorIs(t, err, retry.ErrBadBaseDelay)

	_, err = retry.New(1, 0)
	assert.NoError(t, err)
}

func TestSucceedsFirstAttempt(t *testing.T) {
	s, err := retry.New(5, time.Hour) // delay must never be hit
	require.NoError(t, err)

	calls := 0

	start := time.Now()
	err = s.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetriesThenSucceeds(t *testing.T) {
	s, err := retry.New(4, time.Millisecond)
	require.NoError(t, err)

	calls := 0

	err = s.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestAllAttemptsFail(t *testing.T) {
	s, err := retry.New(3, 0)
	require.NoError(t, err)

	cause := errors.New("last cause")
	calls := 0

	err = s.Do(context.Background(), func(context.Context) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.ErrorIs(t, err, cause)
}

func TestBackoffDoubles(t *testing.T) {
	base := 10 * time.Millisecond

	for n, want := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
	} {
		assert.Equal(t, want, retry.Backoff(base, n))
	}
}

func TestBackoffDelayObserved(t *testing.T) {
	base := 20 * time.Millisecond

	s, err := retry.New(3, base)
	require.NoError(t, err)

	var timestamps []time.Time

	_ = s.Do(context.Background(), func(context.Context) error {
		timestamps = append(timestamps, time.Now())
		return errors.New("always")
	})

	require.Len(t, timestamps, 3)

	// delay before attempt 2 is base, before attempt 3 is 2*base
	assert.GreaterOrEqual(t, timestamps[1].Sub(timestamps[0]), base)
	assert.GreaterOrEqual(t, timestamps[2].Sub(timestamps[1]), 2*base)
}

func TestSleepAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := retry.Sleep(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestValue(t *testing.T) {
	s, err := retry.New(2, 0)
	require.NoError(t, err)

	calls := 0

	got, err := retry.Value(context.Background(), s, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
