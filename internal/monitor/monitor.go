// Package monitor orchestrates fetch cycles across all configured boards:
// it isolates per-board failures, stamps first-seen timestamps from the
// tracking store, merges results with cross-source dedupe, and hands new
// postings to the notifier.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dchernopolskiy/Flare-sub001/internal/adapter"
	"github.com/dchernopolskiy/Flare-sub001/internal/detect"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
	"github.com/dchernopolskiy/Flare-sub001/internal/ratelimit"
	"github.com/dchernopolskiy/Flare-sub001/internal/retry"
	"github.com/dchernopolskiy/Flare-sub001/internal/view"
)

// BoardState is the lifecycle state of one board within the monitor.
type BoardState string

const (
	StateDisabled BoardState = "disabled"
	StateIdle     BoardState = "idle"
	StateFetching BoardState = "fetching"
)

// Config carries the orchestrator's tunables. Zero values get defaults.
type Config struct {
	Params            model.FetchParams
	Concurrency       int           // max boards fetched at once
	TrackingRetention time.Duration // first-seen entries pruned past this
	CleanupRetention  time.Duration // postings dropped past this unless starred/applied
	NotifyWindow      time.Duration // only postings this fresh are notified
	MaxRetries        int
	RetryBaseDelay    time.Duration
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.TrackingRetention <= 0 {
		c.TrackingRetention = 30 * 24 * time.Hour
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = 7 * 24 * time.Hour
	}
	if c.NotifyWindow <= 0 {
		c.NotifyWindow = 2 * time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 5 * time.Second
	}
}

// Monitor owns the board list and the per-board last-good result sets. All
// mutations to the authoritative posting set go through its mutex; readers
// see consistent snapshots via the view.
type Monitor struct {
	store    model.Store
	view     *view.View
	detector *detect.Detector
	caches   *detect.Caches
	limiter  *ratelimit.SourceRateLimiter
	notifier model.Notifier
	client   *http.Client
	logger   *slog.Logger
	cfg      Config

	mu      sync.Mutex
	boards  []model.Board
	results map[string][]model.Job // last successful fetch per board name
	states  map[string]BoardState
	errs    map[string]string // user-visible error per board name

	now func() time.Time
}

func New(
	store model.Store,
	v *view.View,
	detector *detect.Detector,
	caches *detect.Caches,
	limiter *ratelimit.SourceRateLimiter,
	notifier model.Notifier,
	client *http.Client,
	logger *slog.Logger,
	cfg Config,
) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		store:    store,
		view:     v,
		detector: detector,
		caches:   caches,
		limiter:  limiter,
		notifier: notifier,
		client:   client,
		logger:   logger,
		cfg:      cfg,
		results:  make(map[string][]model.Job),
		states:   make(map[string]BoardState),
		errs:     make(map[string]string),
		now:      time.Now,
	}
}

// Load restores boards, the last posting snapshot, and the starred/applied
// sets from the store. Load failures mean "start from empty", never fatal.
func (m *Monitor) Load() {
	boards, err := m.store.LoadBoards()
	if err != nil {
		m.logger.Warn("loading boards failed, starting empty", "error", err)
	}
	jobs, err := m.store.LoadJobs()
	if err != nil {
		m.logger.Warn("loading jobs failed, starting empty", "error", err)
	}
	starred, err := m.store.LoadStarred()
	if err != nil {
		m.logger.Warn("loading starred set failed, starting empty", "error", err)
	}
	applied, err := m.store.LoadApplied()
	if err != nil {
		m.logger.Warn("loading applied set failed, starting empty", "error", err)
	}

	m.mu.Lock()
	m.boards = boards
	for _, b := range boards {
		m.states[b.Name] = stateFor(b)
	}
	m.mu.Unlock()

	m.view.SetJobs(jobs)
	if starred != nil {
		m.view.SetStarred(starred)
	}
	if applied != nil {
		m.view.SetApplied(applied)
	}
}

func stateFor(b model.Board) BoardState {
	if !b.Enabled {
		return StateDisabled
	}
	return StateIdle
}

type fetchOutcome struct {
	board model.Board
	jobs  []model.Job
	det   *detect.Result
	err   error
}

// RefreshAll runs one full fetch cycle over every enabled board with bounded
// concurrency. Individual board failures never abort the cycle.
func (m *Monitor) RefreshAll(ctx context.Context) {
	m.mu.Lock()
	enabled := make([]model.Board, 0, len(m.boards))
	for _, b := range m.boards {
		if b.Enabled {
			enabled = append(enabled, b)
			m.states[b.Name] = StateFetching
		}
	}
	m.mu.Unlock()

	outcomes := make([]fetchOutcome, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, b := range enabled {
		i, b := i, b
		g.Go(func() error {
			jobs, det, err := m.fetchBoard(gctx, b)
			outcomes[i] = fetchOutcome{board: b, jobs: jobs, det: det, err: err}
			return nil // failure isolation: one board never cancels the rest
		})
	}
	g.Wait()

	delta := m.applyOutcomes(outcomes, true)
	m.notify(delta)
}

// RefreshBoard runs one fetch cycle for a single board by name, re-merging
// its result with every other board's last-good set.
func (m *Monitor) RefreshBoard(ctx context.Context, name string) error {
	m.mu.Lock()
	var target *model.Board
	for _, b := range m.boards {
		if b.Name == name {
			target = &b
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return fmt.Errorf("unknown board %q", name)
	}
	if !target.Enabled {
		m.mu.Unlock()
		return nil
	}
	m.states[name] = StateFetching
	board := *target
	m.mu.Unlock()

	jobs, det, err := m.fetchBoard(ctx, board)
	delta := m.applyOutcomes([]fetchOutcome{{board: board, jobs: jobs, det: det, err: err}}, false)
	m.notify(delta)
	return nil
}

// fetchBoard fetches one board, either directly through its ATS adapter or
// via the detection cascade for unknown boards.
func (m *Monitor) fetchBoard(ctx context.Context, b model.Board) ([]model.Job, *detect.Result, error) {
	source := b.Source
	fetchURL := b.URL
	if source == model.SourceUnknown && b.DetectedATSType != "" && b.DetectedATSType != model.SourceUnknown {
		source = b.DetectedATSType
		fetchURL = b.DetectedATSURL
	}

	if source != model.SourceUnknown {
		fetcher, err := adapter.ForURL(source, fetchURL, b.Name, m.client)
		if err != nil {
			return nil, nil, err
		}
		wrapped := retry.NewRetryFetcher(
			ratelimit.NewRateLimitedFetcher(fetcher, m.limiter, source),
			m.cfg.MaxRetries, m.cfg.RetryBaseDelay, m.logger,
		)
		jobs, err := wrapped.FetchJobs(ctx, m.cfg.Params)
		if err != nil {
			return nil, nil, err
		}
		return jobs, nil, nil
	}

	if err := m.limiter.Wait(ctx, model.SourceUnknown); err != nil {
		return nil, nil, err
	}
	res, err := m.detector.Detect(ctx, b.URL, m.cfg.Params, nil)
	if err != nil {
		return nil, nil, err
	}
	return res.Jobs, res, nil
}

// applyOutcomes folds fetch results into monitor state under one lock:
// first-seen stamping, delta computation, error bookkeeping, detection
// persistence, then an atomic merge into the view. Returns the combined
// delta of new postings. clean marks a full cycle, which clears errors for
// boards that were not part of this cycle's failures.
func (m *Monitor) applyOutcomes(outcomes []fetchOutcome, clean bool) []model.Job {
	now := m.now()
	var delta []model.Job

	m.mu.Lock()
	defer m.mu.Unlock()

	if clean {
		m.errs = make(map[string]string)
	}

	for _, o := range outcomes {
		name := o.board.Name
		m.states[name] = StateIdle

		if o.err != nil {
			m.errs[name] = fmt.Sprintf("%s: %s", name, o.err)
			m.logger.Warn("board fetch failed, keeping last results",
				"board", name, "error", o.err)
			continue
		}
		delete(m.errs, name)

		tracking, err := m.store.LoadTracking(name)
		if err != nil {
			m.logger.Warn("loading tracking failed", "board", name, "error", err)
			tracking = nil
		}

		jobs := o.jobs
		for i := range jobs {
			if seen, ok := tracking[jobs[i].ID]; ok {
				jobs[i].FirstSeen = seen
				if jobs[i].RecentlyBumped(now) {
					delta = append(delta, jobs[i])
				}
			} else {
				jobs[i].FirstSeen = now
				delta = append(delta, jobs[i])
			}
		}

		if err := m.store.SaveTracking(jobs, name, now, m.cfg.TrackingRetention); err != nil {
			m.logger.Warn("saving tracking failed", "board", name, "error", err)
		}

		m.results[name] = jobs
		m.updateBoard(name, now, o.det)

		m.logger.Info("board fetched", "board", name, "jobs", len(jobs), "new", countNew(jobs, tracking))
	}

	m.mergeLocked()
	m.persistBoardsLocked()
	return delta
}

func countNew(jobs []model.Job, tracking map[string]time.Time) int {
	n := 0
	for _, j := range jobs {
		if _, ok := tracking[j.ID]; !ok {
			n++
		}
	}
	return n
}

// updateBoard stamps LastFetched and persists a cascade discovery onto the
// board config so later cycles skip straight to the discovered ATS.
// Must be called with m.mu held.
func (m *Monitor) updateBoard(name string, now time.Time, det *detect.Result) {
	for i := range m.boards {
		if m.boards[i].Name != name {
			continue
		}
		t := now
		m.boards[i].LastFetched = &t
		if det != nil && det.ATSType != "" && det.ATSType != model.SourceUnknown {
			m.boards[i].DetectedATSType = det.ATSType
			m.boards[i].DetectedATSURL = det.ATSURL
		}
		return
	}
}

// mergeLocked rebuilds the authoritative posting set from every board's
// last-good results, deduplicating across boards by id (first wins, in board
// order), and replaces the view's set atomically. Must hold m.mu.
func (m *Monitor) mergeLocked() {
	seen := make(map[string]bool)
	var merged []model.Job
	for _, b := range m.boards {
		for _, j := range m.results[b.Name] {
			if seen[j.ID] {
				continue
			}
			seen[j.ID] = true
			merged = append(merged, j)
		}
	}

	m.view.SetJobs(merged)
	if err := m.store.SaveJobs(merged); err != nil {
		m.logger.Warn("saving jobs failed", "error", err)
	}
}

func (m *Monitor) persistBoardsLocked() {
	if err := m.store.SaveBoards(m.boards); err != nil {
		m.logger.Warn("saving boards failed", "error", err)
	}
}

// notify hands freshly-posted deltas to the notifier. Only postings with a
// known posting date inside the recency window go out: a newly added board
// dumps its whole backlog into the delta, and none of that is "just posted".
func (m *Monitor) notify(delta []model.Job) {
	if m.notifier == nil || len(delta) == 0 {
		return
	}
	now := m.now()

	var fresh []model.Job
	for _, j := range delta {
		if j.PostedAt == nil {
			continue
		}
		if age := now.Sub(*j.PostedAt); age >= 0 && age <= m.cfg.NotifyWindow {
			fresh = append(fresh, j)
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := m.notifier.Notify(fresh); err != nil {
		m.logger.Warn("notification failed", "jobs", len(fresh), "error", err)
	}
}

// Cleanup drops postings older than the cleanup retention (by posting date,
// else first-seen) from every board's result set, sparing starred and
// applied jobs, then re-merges.
func (m *Monitor) Cleanup() int {
	now := m.now()
	cutoff := now.Add(-m.cfg.CleanupRetention)
	starred := m.view.Starred()
	applied := m.view.Applied()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for name, jobs := range m.results {
		kept := jobs[:0]
		for _, j := range jobs {
			if j.DisplayDate().Before(cutoff) && !starred[j.ID] && !applied[j.ID] {
				removed++
				continue
			}
			kept = append(kept, j)
		}
		m.results[name] = kept
	}

	if removed > 0 {
		m.mergeLocked()
		m.logger.Info("cleanup pass complete", "removed", removed)
	}
	return removed
}

// Errors returns the concatenated per-board error string, empty when every
// board's latest cycle succeeded.
func (m *Monitor) Errors() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parts []string
	for _, b := range m.boards {
		if msg, ok := m.errs[b.Name]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// State returns the lifecycle state of one board.
func (m *Monitor) State(name string) BoardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[name]; ok {
		return s
	}
	return StateDisabled
}

// ToggleStarred flips a job's starred flag and persists the set.
func (m *Monitor) ToggleStarred(id string) bool {
	on := m.view.ToggleStarred(id)
	if err := m.store.SaveStarred(m.view.Starred()); err != nil {
		m.logger.Warn("saving starred set failed", "error", err)
	}
	return on
}

// ToggleApplied flips a job's applied flag and persists the set.
func (m *Monitor) ToggleApplied(id string) bool {
	on := m.view.ToggleApplied(id)
	if err := m.store.SaveApplied(m.view.Applied()); err != nil {
		m.logger.Warn("saving applied set failed", "error", err)
	}
	return on
}
