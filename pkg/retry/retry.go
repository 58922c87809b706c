// Package retry implements the poll retry policy with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Policy defines retry behavior. It is injected into the poller rather than
// hard-coded so deployments can tune attempts and backoff per environment.
type Policy struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, +/- fraction of the delay
}

// DefaultPolicy matches the poller contract: three attempts with a short
// exponential backoff and 10% jitter.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// applyJitter spreads a delay by +/- jitterFactor to avoid synchronized
// retries across sources.
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do runs fn until it succeeds or attempts are exhausted, returning the last
// error. A permanent failure (IsRetryable false) stops immediately without
// burning the remaining attempts. Respects context cancellation during
// backoff waits.
func Do(ctx context.Context, p *Policy, fn func() error) error {
	if p == nil {
		p = DefaultPolicy()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == attempts || !IsRetryable(lastErr) {
			break
		}
		select {
		case <-time.After(applyJitter(delay, p.JitterFactor)):
			delay = time.Duration(float64(delay) * p.Multiplier)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}

// DoWithResult is Do for functions that return a value.
func DoWithResult[T any](ctx context.Context, p *Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		r, err := fn()
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// IsRetryable reports whether an error is transient and worth retrying.
// Used to avoid burning attempts on permanent failures (bad credentials,
// malformed config).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	type retryable interface {
		IsRetryable() bool
	}
	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"i/o timeout",
		"network is unreachable",
		"429",
		"500",
		"502",
		"503",
		"504",
		"rate limit",
		"service unavailable",
		"too many requests",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
