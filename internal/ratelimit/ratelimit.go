package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// SourceRateLimiter enforces a minimum delay between requests to the same
// source backend. Boards on the same ATS share one key, so two greenhouse
// boards never hit the upstream back to back.
type SourceRateLimiter struct {
	mu       sync.Mutex
	lastCall map[model.Source]time.Time
	minDelay time.Duration
}

// NewSourceRateLimiter creates a rate limiter that enforces minDelay between
// consecutive requests to the same source.
func NewSourceRateLimiter(minDelay time.Duration) *SourceRateLimiter {
	return &SourceRateLimiter{
		lastCall: make(map[model.Source]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to the
// given source. Returns an error if the context is cancelled while waiting.
func (r *SourceRateLimiter) Wait(ctx context.Context, source model.Source) error {
	r.mu.Lock()
	last, ok := r.lastCall[source]
	now := time.Now()

	if !ok {
		r.lastCall[source] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= r.minDelay {
		r.lastCall[source] = now
		r.mu.Unlock()
		return nil
	}

	remaining := r.minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", source, ctx.Err())
	case <-time.After(remaining):
	}

	r.mu.Lock()
	r.lastCall[source] = time.Now()
	r.mu.Unlock()

	return nil
}

// RateLimitedFetcher is a decorator that enforces source-level rate limiting
// before delegating to the wrapped JobFetcher.
type RateLimitedFetcher struct {
	inner   model.JobFetcher
	limiter *SourceRateLimiter
	source  model.Source
}

// NewRateLimitedFetcher wraps a JobFetcher with source-level rate limiting.
// All fetchers targeting the same source should share the same limiter.
func NewRateLimitedFetcher(inner model.JobFetcher, limiter *SourceRateLimiter, source model.Source) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
		source:  source,
	}
}

// FetchJobs waits for the rate limiter to allow a request, then delegates to
// the wrapped fetcher.
func (f *RateLimitedFetcher) FetchJobs(ctx context.Context, params model.FetchParams) ([]model.Job, error) {
	if err := f.limiter.Wait(ctx, f.source); err != nil {
		return nil, err
	}
	return f.inner.FetchJobs(ctx, params)
}
