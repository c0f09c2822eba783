package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// RetryFetcher is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped JobFetcher.
type RetryFetcher struct {
	inner      model.JobFetcher
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryFetcher wraps a JobFetcher with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryFetcher(inner model.JobFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// FetchJobs attempts to fetch jobs, retrying on transient errors.
func (f *RetryFetcher) FetchJobs(ctx context.Context, params model.FetchParams) ([]model.Job, error) {
	jobs, err := f.inner.FetchJobs(ctx, params)
	if err == nil {
		return jobs, nil
	}

	if !isRetryable(err) {
		return nil, err
	}

	var lastErr error = err
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		delay := f.backoffDelay(attempt, lastErr)

		f.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", f.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		jobs, err = f.inner.FetchJobs(ctx, params)
		if err == nil {
			return jobs, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (f *RetryFetcher) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth
// retrying. Decode and API-payload errors are deterministic and never retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var decodeErr *model.DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 500 {
			return true
		}
		return false
	}

	// Non-HTTP errors (network, DNS, etc.) are retryable.
	return true
}
