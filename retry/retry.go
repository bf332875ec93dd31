// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var (
	ErrBadMaxAttempts = errors.New("max attempts must be at least 1")
	ErrBadBaseDelay   = errors.New("base delay must not be negative")
)

type Strategy struct {
	maxAttempts int
	baseDelay   time.Duration
}

func New(maxAttempts int, baseDelay time.Duration) (*Strategy, error) {
	if maxAttempts < 1 {
		return nil, ErrBadMaxAttempts
	}

	if baseDelay < 0 {
		return nil, ErrBadBaseDelay
	}

	return &Strategy{maxAttempts: maxAttempts, baseDelay: baseDelay}, nil
}

func (s *Strategy) MaxAttempts() int {
	return s.maxAttempts
}

// Do calls op up to maxAttempts times. Before attempt k (k >= 2) it
// waits baseDelay * 2^(k-2), aborting the wait when ctx is done. On
// success it returns immediately. When every attempt fails the returned
// error aggregates the attempt count and all underlying causes.
func (s *Strategy) Do(ctx context.Context, op func(context.Context) error) error {
	var causes error

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(s.baseDelay, attempt-1)

			if err := Sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		causes = multierr.Append(causes, err)
	}

	return fmt.Errorf("operation failed after %d attempts: %w", s.maxAttempts, causes)
}

// Value is like Strategy.Do for operations that produce a result.
func Value[T any](ctx context.Context, s *Strategy, op func(context.Context) (T, error)) (T, error) {
	var out T

	err := s.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = op(ctx)

		return err
	})

	return out, err
}

// Backoff returns baseDelay * 2^n.
func Backoff(baseDelay time.Duration, n int) time.Duration {
	return baseDelay * time.Duration(1<<uint(n))
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
