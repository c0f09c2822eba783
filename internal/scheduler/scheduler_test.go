package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// fakeRefresher counts cycle and per-board refresh invocations.
type fakeRefresher struct {
	boards     []model.Board
	refreshAll atomic.Int32
	cleanups   atomic.Int32

	mu       sync.Mutex
	perBoard map[string]int
}

func newFakeRefresher(boards ...model.Board) *fakeRefresher {
	return &fakeRefresher{boards: boards, perBoard: make(map[string]int)}
}

func (f *fakeRefresher) RefreshAll(_ context.Context) { f.refreshAll.Add(1) }

func (f *fakeRefresher) RefreshBoard(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perBoard[name]++
	return nil
}

func (f *fakeRefresher) Boards() []model.Board {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Board, len(f.boards))
	copy(out, f.boards)
	return out
}

func (f *fakeRefresher) addBoard(b model.Board) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = append(f.boards, b)
}

func (f *fakeRefresher) Cleanup() int {
	f.cleanups.Add(1)
	return 0
}

func (f *fakeRefresher) boardCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perBoard[name]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ImmediateFullCycleAndPerBoardTimers(t *testing.T) {
	r := newFakeRefresher(
		model.Board{Name: "Alpha", Enabled: true},
		model.Board{Name: "Beta", Enabled: true},
		model.Board{Name: "Off", Enabled: false},
	)
	s := New(r, 50*time.Millisecond, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.boardCount("Alpha") == 0 || r.boardCount("Beta") == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for per-board refreshes")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.refreshAll.Load(); got != 1 {
		t.Errorf("expected exactly 1 immediate full cycle, got %d", got)
	}
	if r.boardCount("Off") != 0 {
		t.Error("disabled board must not be scheduled")
	}
}

func TestRun_PicksUpBoardsAddedAtRuntime(t *testing.T) {
	r := newFakeRefresher(model.Board{Name: "Alpha", Enabled: true})
	s := New(r, 50*time.Millisecond, nil, discardLogger())
	s.wakeCheck = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for r.boardCount("Alpha") == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the initial board timer")
		case <-time.After(10 * time.Millisecond):
		}
	}

	r.addBoard(model.Board{Name: "Gamma", Enabled: true})

	for r.boardCount("Gamma") == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the added board's timer")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	r := newFakeRefresher()
	s := New(r, time.Hour, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on graceful shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestClockJumped(t *testing.T) {
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	interval := 30 * time.Second

	tests := []struct {
		name string
		gap  time.Duration
		want bool
	}{
		{"normal tick", 30 * time.Second, false},
		{"jitter", 45 * time.Second, false},
		{"threshold boundary", 90 * time.Second, false},
		{"wake from sleep", 20 * time.Minute, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := clockJumped(base, base.Add(tc.gap), interval); got != tc.want {
				t.Errorf("clockJumped(gap=%v) = %v, want %v", tc.gap, got, tc.want)
			}
		})
	}
}
