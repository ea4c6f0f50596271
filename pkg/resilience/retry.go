// Package resilience provides an exponential-backoff retry wrapper. A failed
// index commit leaves nothing visible, so a whole indexing run can safely be
// retried from scratch.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/forumbase/postsearch/pkg/logger"
)

// RetryConfig controls the backoff schedule. Zero values fall back to the
// defaults below.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

// delay returns the jittered backoff before the given retry (1-based,
// counting failed attempts so far).
func (cfg RetryConfig) delay(failed int) time.Duration {
	d := float64(cfg.InitialDelay)
	for i := 1; i < failed; i++ {
		d *= cfg.Multiplier
		if d >= float64(cfg.MaxDelay) {
			d = float64(cfg.MaxDelay)
			break
		}
	}
	d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, the attempt budget is spent, or ctx is
// cancelled. The last error is returned wrapped, so errors.Is still matches
// the underlying failure.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := logger.WithComponent("retry").With("operation", name)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, lastErr)
		}
		delay := cfg.delay(attempt)
		log.Warn("operation failed, backing off",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s aborted during backoff: %w", name, ctx.Err())
		}
	}
}
