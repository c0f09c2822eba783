package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// flakyFetcher fails a fixed number of times before succeeding.
type flakyFetcher struct {
	failures int
	err      error
	calls    int
}

func (f *flakyFetcher) FetchJobs(_ context.Context, _ model.FetchParams) ([]model.Job, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []model.Job{{ID: "lever-1"}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchJobs_RetriesTransientError(t *testing.T) {
	inner := &flakyFetcher{failures: 2, err: &model.HTTPError{StatusCode: 503}}
	f := NewRetryFetcher(inner, 2, time.Millisecond, discardLogger())

	jobs, err := f.FetchJobs(context.Background(), model.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || inner.calls != 3 {
		t.Errorf("expected success on third attempt, jobs=%d calls=%d", len(jobs), inner.calls)
	}
}

func TestFetchJobs_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyFetcher{failures: 10, err: &model.HTTPError{StatusCode: 500}}
	f := NewRetryFetcher(inner, 2, time.Millisecond, discardLogger())

	_, err := f.FetchJobs(context.Background(), model.FetchParams{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestFetchJobs_NoRetryOnPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"http 404", &model.HTTPError{StatusCode: 404}},
		{"decode error", &model.DecodeError{Source: model.SourceLever, Err: errors.New("bad json")}},
		{"api error", &model.APIError{Source: model.SourceGreenhouse, Message: "invalid board"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inner := &flakyFetcher{failures: 10, err: tc.err}
			f := NewRetryFetcher(inner, 3, time.Millisecond, discardLogger())

			if _, err := f.FetchJobs(context.Background(), model.FetchParams{}); err == nil {
				t.Fatal("expected error")
			}
			if inner.calls != 1 {
				t.Errorf("expected exactly 1 attempt, got %d", inner.calls)
			}
		})
	}
}

func TestFetchJobs_RespectsRetryAfter(t *testing.T) {
	inner := &flakyFetcher{failures: 1, err: &model.HTTPError{StatusCode: 429, RetryAfter: 50 * time.Millisecond}}
	f := NewRetryFetcher(inner, 1, time.Millisecond, discardLogger())

	start := time.Now()
	if _, err := f.FetchJobs(context.Background(), model.FetchParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected Retry-After to govern the delay, took %v", elapsed)
	}
}

func TestFetchJobs_NoRetryOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyFetcher{failures: 10, err: ctx.Err()}
	f := NewRetryFetcher(inner, 3, time.Millisecond, discardLogger())

	if _, err := f.FetchJobs(ctx, model.FetchParams{}); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", inner.calls)
	}
}
