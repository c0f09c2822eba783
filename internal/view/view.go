// Package view maintains the authoritative posting set and a memoized
// filtered view over it. Reads always observe a consistent snapshot; any
// mutation invalidates the memo synchronously.
package view

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// Params is the filter tuple. Keyword fields are comma-separated lists
// matched as case-insensitive substrings with OR semantics within a field.
type Params struct {
	TitleKeywords    string
	LocationKeywords string
	Sources          []model.Source
	StarredOnly      bool
	AppliedOnly      bool
}

func (p Params) key() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(p.TitleKeywords))
	sb.WriteByte('\x00')
	sb.WriteString(strings.ToLower(p.LocationKeywords))
	sb.WriteByte('\x00')
	sources := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		sources[i] = string(s)
	}
	sort.Strings(sources)
	sb.WriteString(strings.Join(sources, ","))
	sb.WriteByte('\x00')
	if p.StarredOnly {
		sb.WriteByte('s')
	}
	if p.AppliedOnly {
		sb.WriteByte('a')
	}
	return sb.String()
}

// View owns the in-memory posting set plus the starred/applied id sets and
// serves filtered reads through a single-entry memo keyed by the filter
// tuple and a version counter bumped on every mutation.
type View struct {
	mu      sync.RWMutex
	jobs    []model.Job
	starred map[string]bool
	applied map[string]bool
	version uint64

	memoKey     string
	memoVersion uint64
	memoResult  []model.Job
	memoValid   bool

	recomputes int // filter-pass count, read by tests

	now func() time.Time
}

func New() *View {
	return &View{
		starred: make(map[string]bool),
		applied: make(map[string]bool),
		now:     time.Now,
	}
}

// SetJobs replaces the authoritative posting set.
func (v *View) SetJobs(jobs []model.Job) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jobs = make([]model.Job, len(jobs))
	copy(v.jobs, jobs)
	v.invalidate()
}

// Jobs returns a copy of the full posting set.
func (v *View) Jobs() []model.Job {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Job, len(v.jobs))
	copy(out, v.jobs)
	return out
}

// SetStarred replaces the starred id set.
func (v *View) SetStarred(ids map[string]bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.starred = cloneSet(ids)
	v.invalidate()
}

// SetApplied replaces the applied id set.
func (v *View) SetApplied(ids map[string]bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied = cloneSet(ids)
	v.invalidate()
}

// ToggleStarred flips the starred flag for id and returns the new state.
func (v *View) ToggleStarred(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.starred[id] = !v.starred[id]
	v.invalidate()
	return v.starred[id]
}

// ToggleApplied flips the applied flag for id and returns the new state.
func (v *View) ToggleApplied(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applied[id] = !v.applied[id]
	v.invalidate()
	return v.applied[id]
}

// Starred returns a copy of the starred id set.
func (v *View) Starred() map[string]bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneSet(v.starred)
}

// Applied returns a copy of the applied id set.
func (v *View) Applied() map[string]bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneSet(v.applied)
}

// invalidate must be called with v.mu held for writing.
func (v *View) invalidate() {
	v.version++
	v.memoValid = false
	v.memoResult = nil
}

// Filtered applies params over the current posting set. Identical params
// against an unchanged set return the memoized result without recomputing.
// The returned slice is the caller's to mutate; the memo keeps its own copy.
func (v *View) Filtered(params Params) []model.Job {
	key := params.key()

	v.mu.RLock()
	if v.memoValid && v.memoKey == key && v.memoVersion == v.version {
		out := copyJobs(v.memoResult)
		v.mu.RUnlock()
		return out
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.memoValid && v.memoKey == key && v.memoVersion == v.version {
		return copyJobs(v.memoResult)
	}

	result := v.compute(params)
	v.memoKey = key
	v.memoVersion = v.version
	v.memoResult = result
	v.memoValid = true
	return copyJobs(result)
}

func copyJobs(jobs []model.Job) []model.Job {
	out := make([]model.Job, len(jobs))
	copy(out, jobs)
	return out
}

// compute must be called with v.mu held for writing.
func (v *View) compute(params Params) []model.Job {
	v.recomputes++
	now := v.now()

	titleKeywords := splitKeywords(params.TitleKeywords)
	locationKeywords := splitKeywords(params.LocationKeywords)
	sources := make(map[model.Source]bool, len(params.Sources))
	for _, s := range params.Sources {
		sources[s] = true
	}

	result := make([]model.Job, 0, len(v.jobs))
	for _, j := range v.jobs {
		if !inDisplayWindow(j, now) {
			continue
		}
		if !matchKeywords(j.Title, titleKeywords) {
			continue
		}
		if !matchKeywords(j.Location, locationKeywords) {
			continue
		}
		if len(sources) > 0 && !sources[j.Source] {
			continue
		}
		if params.StarredOnly && !v.starred[j.ID] {
			continue
		}
		if params.AppliedOnly && !v.applied[j.ID] {
			continue
		}
		result = append(result, j)
	}
	return result
}

// inDisplayWindow keeps jobs posted (or first seen, when the posting date is
// unknown) within the display window. Recently bumped jobs are always kept.
func inDisplayWindow(j model.Job, now time.Time) bool {
	if j.RecentlyBumped(now) {
		return true
	}
	ref := j.DisplayDate()
	if ref.IsZero() {
		return true
	}
	return now.Sub(ref) <= model.DisplayWindow
}

func splitKeywords(csv string) []string {
	var out []string
	for _, kw := range strings.Split(csv, ",") {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func matchKeywords(field string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	fieldLower := strings.ToLower(field)
	for _, kw := range keywords {
		if strings.Contains(fieldLower, kw) {
			return true
		}
	}
	return false
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for id, ok := range in {
		if ok {
			out[id] = true
		}
	}
	return out
}
