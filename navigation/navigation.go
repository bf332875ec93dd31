// Package navigation drives page loads against an unreliable remote
// target. It retries across an ordered list of wait strategies and tunes
// the per-attempt timeout from observed load times.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadscout/leadscout/errlog"
	"github.com/leadscout/leadscout/retry"
)

const (
	// DefaultTimeout is used until the rolling window has samples.
	DefaultTimeout = 60 * time.Second

	// timeoutIncrement is added per attempt within a strategy.
	timeoutIncrement = 30 * time.Second

	// adjustStep is the fixed step applied by AdjustTimeout.
	adjustStep = 10 * time.Second

	windowSize = 10
)

var (
	ErrBadRetries       = errors.New("max retries must be at least 1")
	ErrBadDelay         = errors.New("base delay must not be negative")
	ErrBadTimeoutBounds = errors.New("timeout bounds must satisfy min <= initial <= max")
)

type Options struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MinTimeout     time.Duration
	MaxTimeout     time.Duration
	InitialTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		MinTimeout:     30 * time.Second,
		MaxTimeout:     180 * time.Second,
		InitialTimeout: DefaultTimeout,
	}
}

func (o Options) Validate() error {
	if o.MaxRetries < 1 {
		return ErrBadRetries
	}

	if o.BaseDelay < 0 {
		return ErrBadDelay
	}

	if o.MinTimeout <= 0 || o.MinTimeout > o.InitialTimeout || o.InitialTimeout > o.MaxTimeout {
		return ErrBadTimeoutBounds
	}

	return nil
}

// Opener loads a url and blocks until the given completion strategy is
// satisfied or the timeout elapses.
type Opener interface {
	Open(ctx context.Context, url string, strategy WaitStrategy, timeout time.Duration) error
}

// TerminalError means every strategy exhausted its retry budget for one
// url. It is distinguishable from per-attempt transient failures.
type TerminalError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

func (e *TerminalError) Unwrap() error {
	return e.Last
}

type Statistics struct {
	NavigationCount int
	CurrentTimeout  time.Duration
	AdaptiveTimeout time.Duration
	Window          []time.Duration
}

// Manager holds per-session navigation state. It is private to one
// worker and never shared across sessions.
type Manager struct {
	opts Options
	log  *zap.Logger
	errs *errlog.Logger

	mu      sync.Mutex
	current time.Duration
	window  []time.Duration
	count   int
}

func NewManager(opts Options, log *zap.Logger, errs *errlog.Logger) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Manager{
		opts:    opts,
		log:     log,
		errs:    errs,
		current: opts.InitialTimeout,
	}, nil
}

// NavigateWithRetry attempts the navigation with each wait strategy in
// order, up to MaxRetries attempts per strategy. The first success stops
// everything; full exhaustion returns a *TerminalError carrying the url.
func (m *Manager) NavigateWithRetry(ctx context.Context, opener Opener, url string) error {
	var last error

	attempts := 0

	for _, strategy := range Strategies() {
		for i := 0; i < m.opts.MaxRetries; i++ {
			if i > 0 {
				if err := retry.Sleep(ctx, retry.Backoff(m.opts.BaseDelay, i-1)); err != nil {
					return err
				}
			}

			timeout := m.attemptTimeout(i)
			attempts++

			start := time.Now()

			err := opener.Open(ctx, url, strategy, timeout)
			if err == nil {
				m.recordNavigation(time.Since(start))

				return nil
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			last = err

			m.log.Debug("navigation attempt failed",
				zap.String("url", url),
				zap.Stringer("strategy", strategy),
				zap.Int("attempt", i+1),
				zap.Duration("timeout", timeout),
				zap.Error(err),
			)
		}
	}

	terminal := &TerminalError{URL: url, Attempts: attempts, Last: last}

	if m.errs != nil {
		m.errs.LogScrapingError("navigation exhausted", terminal, map[string]any{"url": url})
	}

	return terminal
}

func (m *Manager) attemptTimeout(attempt int) time.Duration {
	return m.clamp(m.AdaptiveTimeout() + time.Duration(attempt)*timeoutIncrement)
}

func (m *Manager) recordNavigation(d time.Duration) {
	m.mu.Lock()

	m.window = append(m.window, d)
	if len(m.window) > windowSize {
		m.window = m.window[len(m.window)-windowSize:]
	}

	m.count++
	m.mu.Unlock()

	m.AdjustTimeout(d)
}

// AdjustTimeout nudges the tracked timeout by a fixed step: up when the
// observed duration exceeds 80% of it, down when below 50%, clamped to
// the configured bounds.
func (m *Manager) AdjustTimeout(observed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case observed > m.current*8/10:
		m.current = m.clamp(m.current + adjustStep)
	case observed < m.current/2:
		m.current = m.clamp(m.current - adjustStep)
	}
}

// AdaptiveTimeout returns clamp(2 * average(window)) once the window has
// samples, otherwise the current tracked timeout.
func (m *Manager) AdaptiveTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.window) == 0 {
		return m.current
	}

	var total time.Duration

	for _, d := range m.window {
		total += d
	}

	avg := total / time.Duration(len(m.window))

	return m.clamp(2 * avg)
}

func (m *Manager) CurrentTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

func (m *Manager) Statistics() Statistics {
	adaptive := m.AdaptiveTimeout()

	m.mu.Lock()
	defer m.mu.Unlock()

	window := make([]time.Duration, len(m.window))
	copy(window, m.window)

	return Statistics{
		NavigationCount: m.count,
		CurrentTimeout:  m.current,
		AdaptiveTimeout: adaptive,
		Window:          window,
	}
}

// Reset clears the rolling window, the navigation count and the tracked
// timeout back to defaults.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = nil
	m.count = 0
	m.current = m.opts.InitialTimeout
}

func (m *Manager) clamp(d time.Duration) time.Duration {
	if d < m.opts.MinTimeout {
		return m.opts.MinTimeout
	}

	if d > m.opts.MaxTimeout {
		return m.opts.MaxTimeout
	}

	return d
}
