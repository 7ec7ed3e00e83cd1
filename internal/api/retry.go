package api

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior for failed HTTP requests.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// Multiplier scales the delay after each attempt.
	Multiplier float64
	// Jitter is the fraction (0.0 to 1.0) of each delay that may be
	// randomly shaved off, spreading out retries from concurrent clients.
	Jitter float64
	// RetryableOn determines if a status code should trigger a retry.
	RetryableOn func(statusCode int) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.2,
		RetryableOn: func(statusCode int) bool {
			switch statusCode {
			case 408, 429, 500, 502, 503, 504:
				return true
			default:
				return false
			}
		},
	}
}

// ShouldRetry determines if a request should be retried.
func (r *RetryConfig) ShouldRetry(attempt int, statusCode int) bool {
	if attempt >= r.MaxRetries {
		return false
	}
	return r.RetryableOn(statusCode)
}

// Delay returns the backoff for the given zero-based attempt. The delay
// grows by Multiplier per attempt up to MaxDelay; Jitter then shortens it
// by a random amount, never past (1-Jitter) of the full delay, so the cap
// always holds.
func (r *RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(r.BaseDelay)
	max := float64(r.MaxDelay)
	for i := 0; i < attempt && delay < max; i++ {
		delay *= r.Multiplier
	}
	if delay > max {
		delay = max
	}

	if r.Jitter > 0 {
		delay -= rand.Float64() * r.Jitter * delay
	}

	return time.Duration(delay)
}

// Wait blocks for the attempt's delay or until the context is done.
func (r *RetryConfig) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
