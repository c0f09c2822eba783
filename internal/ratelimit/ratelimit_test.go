package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

func TestWait_FirstRequestImmediate(t *testing.T) {
	r := NewSourceRateLimiter(100 * time.Millisecond)

	start := time.Now()
	if err := r.Wait(context.Background(), model.SourceLever); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("first request should not wait, took %v", elapsed)
	}
}

func TestWait_EnforcesDelayPerSource(t *testing.T) {
	r := NewSourceRateLimiter(60 * time.Millisecond)
	ctx := context.Background()

	if err := r.Wait(ctx, model.SourceLever); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := r.Wait(ctx, model.SourceLever); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second request to same source returned too fast: %v", elapsed)
	}

	// A different source is not throttled by lever's last call.
	start = time.Now()
	if err := r.Wait(ctx, model.SourceAshby); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("different source should not wait, took %v", elapsed)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	r := NewSourceRateLimiter(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if err := r.Wait(ctx, model.SourceLever); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	if err := r.Wait(ctx, model.SourceLever); err == nil {
		t.Fatal("expected error when context is cancelled mid-wait")
	}
}

type countingFetcher struct {
	calls int
}

func (f *countingFetcher) FetchJobs(_ context.Context, _ model.FetchParams) ([]model.Job, error) {
	f.calls++
	return []model.Job{{ID: "lever-1"}}, nil
}

func TestRateLimitedFetcher_Delegates(t *testing.T) {
	inner := &countingFetcher{}
	f := NewRateLimitedFetcher(inner, NewSourceRateLimiter(time.Millisecond), model.SourceLever)

	jobs, err := f.FetchJobs(context.Background(), model.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || inner.calls != 1 {
		t.Errorf("expected delegation to inner fetcher, jobs=%d calls=%d", len(jobs), inner.calls)
	}
}
