// Package scheduler drives the monitor: a cron entry per enabled board, an
// immediate initial full cycle, a daily cleanup pass, and a wall-clock jump
// watcher that refreshes everything after the system wakes from sleep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// wakeCheckInterval is how often the wall clock is sampled to detect a
// suspend/resume gap.
const wakeCheckInterval = 30 * time.Second

// Refresher is the slice of the monitor the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context)
	RefreshBoard(ctx context.Context, name string) error
	Boards() []model.Board
	Cleanup() int
}

// Scheduler owns the timer topology: each enabled board refreshes on its own
// independent cadence, so one slow board never delays another's schedule.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	overrides map[string]time.Duration // per-board interval by name
	logger    *slog.Logger

	wakeCheck time.Duration // overridable in tests
}

// New creates a scheduler. interval is the default per-board refresh cadence;
// overrides replaces it for specific board names.
func New(refresher Refresher, interval time.Duration, overrides map[string]time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		overrides: overrides,
		logger:    logger,
		wakeCheck: wakeCheckInterval,
	}
}

// Run starts with one immediate full cycle, then schedules per-board refresh
// entries and a daily cleanup. The entries are rebuilt whenever the enabled
// board set changes, so boards added or toggled at runtime get their timer
// without a restart. It returns nil when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(), "boards", len(s.refresher.Boards()))

	s.refresher.RefreshAll(ctx)

	c, sig, err := s.buildCron(ctx)
	if err != nil {
		return err
	}
	c.Start()
	defer func() { c.Stop() }()

	// Timers do not fire while the machine sleeps; a wall-clock gap much
	// larger than the sampling interval means we just woke up and are stale.
	ticker := time.NewTicker(s.wakeCheck)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case now := <-ticker.C:
			if clockJumped(last, now, s.wakeCheck) {
				s.logger.Info("wall clock jump detected, refreshing all boards",
					"gap", now.Sub(last).String())
				s.refresher.RefreshAll(ctx)
			}
			last = now

			if newSig := s.scheduleSignature(); newSig != sig {
				s.logger.Info("board list changed, rebuilding schedule")
				c.Stop()
				c, sig, err = s.buildCron(ctx)
				if err != nil {
					return err
				}
				c.Start()
			}
		}
	}
}

// buildCron creates a cron runner with one entry per enabled board plus the
// daily cleanup, and returns the schedule signature it was built from.
func (s *Scheduler) buildCron(ctx context.Context) (*cron.Cron, string, error) {
	c := cron.New()
	for _, b := range s.refresher.Boards() {
		if !b.Enabled {
			continue
		}
		name := b.Name
		spec := fmt.Sprintf("@every %s", s.boardInterval(name))
		if _, err := c.AddFunc(spec, func() {
			if err := s.refresher.RefreshBoard(ctx, name); err != nil {
				s.logger.Error("scheduled refresh failed", "board", name, "error", err)
			}
		}); err != nil {
			return nil, "", fmt.Errorf("scheduling board %s: %w", name, err)
		}
	}
	if _, err := c.AddFunc("@every 24h", func() {
		s.refresher.Cleanup()
	}); err != nil {
		return nil, "", fmt.Errorf("scheduling cleanup: %w", err)
	}
	return c, s.scheduleSignature(), nil
}

func (s *Scheduler) boardInterval(name string) time.Duration {
	if o, ok := s.overrides[name]; ok && o > 0 {
		return o
	}
	return s.interval
}

// scheduleSignature summarizes the enabled boards and their cadences; a
// change means the cron entries are stale.
func (s *Scheduler) scheduleSignature() string {
	var sb strings.Builder
	for _, b := range s.refresher.Boards() {
		if !b.Enabled {
			continue
		}
		sb.WriteString(b.Name)
		sb.WriteByte('@')
		sb.WriteString(s.boardInterval(b.Name).String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// clockJumped reports whether the gap between ticker samples is large enough
// to indicate a system suspend rather than ordinary scheduling jitter.
func clockJumped(last, now time.Time, interval time.Duration) bool {
	return now.Sub(last) > 3*interval
}
