package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/detect"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
	"github.com/dchernopolskiy/Flare-sub001/internal/ratelimit"
	"github.com/dchernopolskiy/Flare-sub001/internal/store"
	"github.com/dchernopolskiy/Flare-sub001/internal/view"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeUpstream routes requests by URL substring to canned handlers, standing
// in for the real ATS APIs.
type fakeUpstream struct {
	mu       sync.Mutex
	handlers map[string]func() (int, string)
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{handlers: make(map[string]func() (int, string))}
}

func (f *fakeUpstream) serve(match string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[match] = func() (int, string) { return status, body }
}

func (f *fakeUpstream) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for match, h := range f.handlers {
		if strings.Contains(req.URL.String(), match) {
			status, body := h()
			return &http.Response{
				StatusCode: status,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

func leverBody(ids ...string) string {
	type categories struct {
		Location string `json:"location"`
	}
	type posting struct {
		ID         string     `json:"id"`
		Text       string     `json:"text"`
		Categories categories `json:"categories"`
		CreatedAt  int64      `json:"createdAt"`
		HostedURL  string     `json:"hostedUrl"`
	}
	postings := make([]posting, len(ids))
	for i, id := range ids {
		postings[i] = posting{
			ID:         id,
			Text:       "Engineer " + id,
			Categories: categories{Location: "Remote"},
			CreatedAt:  testNow.Add(-time.Hour).UnixMilli(),
			HostedURL:  "https://jobs.lever.co/x/" + id,
		}
	}
	body, _ := json.Marshal(postings)
	return string(body)
}

// recordingNotifier records each Notify batch.
type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]model.Job
}

func (n *recordingNotifier) Notify(jobs []model.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, jobs)
	return nil
}

func (n *recordingNotifier) all() []model.Job {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.Job
	for _, b := range n.batches {
		out = append(out, b...)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMonitor(t *testing.T, upstream *fakeUpstream, notifier model.Notifier, boards ...model.Board) (*Monitor, *view.View, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SaveBoards(boards); err != nil {
		t.Fatalf("seeding boards: %v", err)
	}
	v := view.New()
	client := &http.Client{Transport: upstream}
	caches := detect.NewCaches()
	detector := detect.NewDetector(client, caches, nil, false, discardLogger())

	m := New(st, v, detector, caches, ratelimit.NewSourceRateLimiter(0), notifier,
		client, discardLogger(), Config{RetryBaseDelay: time.Millisecond})
	m.now = func() time.Time { return testNow }
	m.Load()
	return m, v, st
}

func leverBoard(name, slug string) model.Board {
	return model.Board{
		Name:    name,
		URL:     "https://jobs.lever.co/" + slug,
		Source:  model.SourceLever,
		Enabled: true,
	}
}

func jobIDs(jobs []model.Job) map[string]bool {
	ids := make(map[string]bool)
	for _, j := range jobs {
		ids[j.ID] = true
	}
	return ids
}

func TestRefreshAll_MergesAndDedupesFirstWins(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("shared", "a1"))
	upstream.serve("/postings/beta", 200, leverBody("shared", "b1"))

	m, v, _ := newTestMonitor(t, upstream, nil,
		leverBoard("Alpha", "alpha"), leverBoard("Beta", "beta"))

	m.RefreshAll(context.Background())

	jobs := v.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs after dedupe, got %d: %v", len(jobs), jobIDs(jobs))
	}
	for _, j := range jobs {
		if j.ID == "lever-shared" && j.Company != "Alpha" {
			t.Errorf("expected first board's copy to win, got company %q", j.Company)
		}
	}
}

func TestRefreshAll_FailureIsolation(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("a1"))
	upstream.serve("/postings/beta", 200, leverBody("b1", "b2"))

	m, v, _ := newTestMonitor(t, upstream, nil,
		leverBoard("Alpha", "alpha"), leverBoard("Beta", "beta"))

	m.RefreshAll(context.Background())
	if len(v.Jobs()) != 3 {
		t.Fatalf("expected 3 jobs after first cycle, got %d", len(v.Jobs()))
	}

	// Beta starts failing: its last-good results must survive and the error
	// must be scoped to Beta.
	upstream.serve("/postings/beta", 404, "")
	m.RefreshAll(context.Background())

	ids := jobIDs(v.Jobs())
	if !ids["lever-b1"] || !ids["lever-b2"] {
		t.Errorf("expected beta's last-good jobs retained, got %v", ids)
	}
	errs := m.Errors()
	if !strings.Contains(errs, "Beta:") {
		t.Errorf("expected per-board error string, got %q", errs)
	}
	if strings.Contains(errs, "Alpha") {
		t.Errorf("healthy board must not appear in errors, got %q", errs)
	}

	// Beta recovers: errors clear on the next clean cycle.
	upstream.serve("/postings/beta", 200, leverBody("b1", "b2"))
	m.RefreshAll(context.Background())
	if errs := m.Errors(); errs != "" {
		t.Errorf("expected errors cleared after clean cycle, got %q", errs)
	}
}

func TestRefreshAll_NotifiesOnlyFreshDelta(t *testing.T) {
	fresh := testNow.Add(-time.Hour).UnixMilli()
	stale := testNow.Add(-10 * 24 * time.Hour).UnixMilli()
	body := fmt.Sprintf(`[
		{"id": "new", "text": "Fresh Role", "createdAt": %d},
		{"id": "old", "text": "Stale Role", "createdAt": %d},
		{"id": "undated", "text": "Undated Role"}
	]`, fresh, stale)

	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, body)

	notifier := &recordingNotifier{}
	m, _, _ := newTestMonitor(t, upstream, notifier, leverBoard("Alpha", "alpha"))

	m.RefreshAll(context.Background())

	notified := notifier.all()
	if len(notified) != 1 || notified[0].ID != "lever-new" {
		t.Fatalf("expected only the fresh posting notified, got %v", jobIDs(notified))
	}

	// Second cycle: nothing is new, nothing is notified.
	m.RefreshAll(context.Background())
	if len(notifier.all()) != 1 {
		t.Errorf("expected no repeat notifications, got %d total", len(notifier.all()))
	}
}

func TestRefreshBoard_RemergesWithOtherSources(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("a1"))
	upstream.serve("/postings/beta", 200, leverBody("b1"))

	m, v, _ := newTestMonitor(t, upstream, nil,
		leverBoard("Alpha", "alpha"), leverBoard("Beta", "beta"))

	m.RefreshAll(context.Background())

	upstream.serve("/postings/beta", 200, leverBody("b1", "b2"))
	if err := m.RefreshBoard(context.Background(), "Beta"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := jobIDs(v.Jobs())
	if !ids["lever-a1"] || !ids["lever-b1"] || !ids["lever-b2"] {
		t.Errorf("expected alpha retained alongside beta's new fetch, got %v", ids)
	}

	if err := m.RefreshBoard(context.Background(), "Nope"); err == nil {
		t.Error("expected error for unknown board")
	}
}

func TestRefreshBoard_FailureKeepsErrorsScoped(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("a1"))
	upstream.serve("/postings/beta", 200, leverBody("b1"))

	m, _, _ := newTestMonitor(t, upstream, nil,
		leverBoard("Alpha", "alpha"), leverBoard("Beta", "beta"))
	m.RefreshAll(context.Background())

	upstream.serve("/postings/alpha", 404, "")
	m.RefreshBoard(context.Background(), "Alpha")
	if !strings.Contains(m.Errors(), "Alpha:") {
		t.Errorf("expected alpha error recorded, got %q", m.Errors())
	}

	// A single-board refresh of Beta must not clear Alpha's standing error.
	m.RefreshBoard(context.Background(), "Beta")
	if !strings.Contains(m.Errors(), "Alpha:") {
		t.Errorf("expected alpha error to survive beta's refresh, got %q", m.Errors())
	}
}

func TestFirstSeen_PreservedAcrossCycles(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("a1"))

	m, v, _ := newTestMonitor(t, upstream, nil, leverBoard("Alpha", "alpha"))

	m.RefreshAll(context.Background())

	later := testNow.Add(6 * time.Hour)
	m.now = func() time.Time { return later }
	m.RefreshAll(context.Background())

	jobs := v.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if !jobs[0].FirstSeen.Equal(testNow) {
		t.Errorf("expected first seen preserved at %v, got %v", testNow, jobs[0].FirstSeen)
	}
}

func TestCleanup_SparesStarredAndApplied(t *testing.T) {
	old := testNow.Add(-10 * 24 * time.Hour).UnixMilli()
	body := fmt.Sprintf(`[
		{"id": "keep-star", "text": "Starred", "createdAt": %d},
		{"id": "keep-applied", "text": "Applied", "createdAt": %d},
		{"id": "drop", "text": "Old", "createdAt": %d},
		{"id": "fresh", "text": "Fresh", "createdAt": %d}
	]`, old, old, old, testNow.Add(-time.Hour).UnixMilli())

	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, body)

	m, v, _ := newTestMonitor(t, upstream, nil, leverBoard("Alpha", "alpha"))
	m.RefreshAll(context.Background())

	m.ToggleStarred("lever-keep-star")
	m.ToggleApplied("lever-keep-applied")

	removed := m.Cleanup()
	if removed != 1 {
		t.Fatalf("expected 1 job removed, got %d", removed)
	}

	ids := jobIDs(v.Jobs())
	if ids["lever-drop"] {
		t.Error("expected old unstarred job dropped")
	}
	if !ids["lever-keep-star"] || !ids["lever-keep-applied"] || !ids["lever-fresh"] {
		t.Errorf("expected starred, applied, and fresh jobs kept, got %v", ids)
	}
}

func TestToggles_Persist(t *testing.T) {
	upstream := newFakeUpstream()
	m, _, st := newTestMonitor(t, upstream, nil)

	if on := m.ToggleStarred("lever-1"); !on {
		t.Error("expected toggle on")
	}
	starred, err := st.LoadStarred()
	if err != nil || !starred["lever-1"] {
		t.Errorf("expected starred flag persisted, got %v (%v)", starred, err)
	}
	if on := m.ToggleStarred("lever-1"); on {
		t.Error("expected toggle off")
	}
}

func TestBoardManagement(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.serve("/postings/alpha", 200, leverBody("a1"))

	m, v, st := newTestMonitor(t, upstream, nil, leverBoard("Alpha", "alpha"))
	m.RefreshAll(context.Background())

	if _, err := m.AddBoard("https://jobs.lever.co/alpha", "Other", true); err == nil {
		t.Error("expected duplicate URL rejected")
	}
	b, err := m.AddBoard("https://boards.greenhouse.io/beta", "Beta", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Source != model.SourceGreenhouse {
		t.Errorf("expected source derived from URL, got %s", b.Source)
	}

	if err := m.SetBoardEnabled("Beta", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.State("Beta") != StateDisabled {
		t.Errorf("expected beta disabled, got %s", m.State("Beta"))
	}

	if err := m.RemoveBoard("Alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Jobs()) != 0 {
		t.Errorf("expected alpha's jobs gone after removal, got %v", jobIDs(v.Jobs()))
	}
	tracking, _ := st.LoadTracking("Alpha")
	if len(tracking) != 0 {
		t.Errorf("expected alpha tracking cleared, got %v", tracking)
	}

	boards, _ := st.LoadBoards()
	if len(boards) != 1 || boards[0].Name != "Beta" {
		t.Errorf("unexpected persisted boards: %+v", boards)
	}
}

func TestImportExportBoards(t *testing.T) {
	upstream := newFakeUpstream()
	m, _, _ := newTestMonitor(t, upstream, nil, leverBoard("Alpha", "alpha"))

	added, failed := m.ImportBoards("https://jobs.lever.co/alpha | Dup | enabled\n" +
		"https://jobs.ashbyhq.com/gamma | Gamma | disabled\n" +
		"garbage line")
	if len(added) != 1 || added[0].Name != "Gamma" {
		t.Fatalf("expected 1 board imported, got %+v", added)
	}
	if len(failed) != 1 {
		t.Errorf("expected 1 failed line, got %v", failed)
	}

	out := m.ExportBoards()
	if !strings.Contains(out, "https://jobs.ashbyhq.com/gamma | Gamma | disabled") {
		t.Errorf("unexpected export output:\n%s", out)
	}
}
