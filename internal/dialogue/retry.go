package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

// RetryConfig controls retries of transient model API failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries up to 3 times with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings that indicate transient
// failures worth retrying: rate limiting, server-side errors, and
// network hiccups. Matching is case-insensitive.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

// isRetryable reports whether the error looks transient.
// NOTE: substring matching on error text is fragile but the model SDK
// does not expose typed errors for these conditions.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// decideWithRetry calls the oracle, retrying transient failures with
// exponential backoff. A rate limiter, when configured, gates every
// attempt including retries.
func (e *Engine) decideWithRetry(ctx context.Context, msgs []*ai.Message, allowRetrieval bool) (*Decision, error) {
	var lastErr error
	delay := e.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		decision, err := e.oracle.Decide(ctx, msgs, allowRetrieval)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("model call succeeded after retry",
					"attempt", attempt+1,
					"elapsed", time.Since(start))
			}
			return decision, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, fmt.Errorf("deciding turn: %w", err)
		}
		if attempt == e.retry.MaxRetries {
			break
		}

		e.logger.Warn("transient model error, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = min(delay*2, e.retry.MaxInterval)
	}

	return nil, fmt.Errorf("deciding turn after %d retries (elapsed %v): %w",
		e.retry.MaxRetries, time.Since(start), lastErr)
}

// NewLimiter builds the per-process model call limiter.
// requestsPerMinute <= 0 disables limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
}
