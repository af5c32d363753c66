package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// CapabilityGate applies the call policy shared by every external
// capability call: a process-wide rate limit, a per-attempt deadline and
// bounded retries with exponential backoff.
type CapabilityGate struct {
	limiter        *rate.Limiter
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// sleep waits between attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCapabilityGate creates a gate from concurrency settings.
// A zero RequestsPerSecond disables rate limiting and a zero CallTimeout
// disables per-attempt deadlines.
func NewCapabilityGate(cfg domain.ConcurrencySettings) *CapabilityGate {
	g := &CapabilityGate{
		timeout:        cfg.CallTimeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		sleep:          sleepContext,
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	return g
}

// Do runs call until it succeeds, the retries are exhausted, the error is
// permanent or the caller's context ends. Each attempt gets its own deadline.
// When every attempt exceeds its deadline the error wraps
// domain.ErrCapabilityTimeout. A nil gate runs call once with no policy.
func (g *CapabilityGate) Do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	if g == nil {
		return call(ctx)
	}
	attempts := g.maxRetries + 1
	timeouts := 0
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := g.backoff(attempt)
			logger.Debug("%s: retrying in %v (attempt %d/%d)", op, wait, attempt+1, attempts)
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("%s: rate limit: %w", op, err)
			}
		}

		timedOut, err := g.attempt(ctx, call)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, domain.ErrPermanent) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			timeouts++
		}
		lastErr = err
		logger.Debug("%s: attempt %d/%d failed: %v", op, attempt+1, attempts, err)
	}

	if timeouts == attempts {
		return fmt.Errorf("%s: %w after %d attempts: %w", op, domain.ErrCapabilityTimeout, attempts, lastErr)
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

// attempt runs one call under the per-attempt deadline and reports whether
// that deadline expired.
func (g *CapabilityGate) attempt(ctx context.Context, call func(ctx context.Context) error) (bool, error) {
	if g.timeout <= 0 {
		return false, call(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	err := call(callCtx)
	return errors.Is(callCtx.Err(), context.DeadlineExceeded), err
}

// backoff returns the delay before the given retry attempt (1-based).
func (g *CapabilityGate) backoff(attempt int) time.Duration {
	d := g.initialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if g.maxBackoff > 0 && d >= g.maxBackoff {
			return g.maxBackoff
		}
	}
	if g.maxBackoff > 0 && d > g.maxBackoff {
		return g.maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
