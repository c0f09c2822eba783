package model

import (
	"context"
	"time"
)

// Source identifies which platform a job was fetched from.
type Source string

const (
	SourceGreenhouse Source = "greenhouse"
	SourceLever      Source = "lever"
	SourceAshby      Source = "ashby"
	SourceWorkday    Source = "workday"
	SourceUnknown    Source = "unknown"
)

// Method records which detection strategy produced a set of jobs.
type Method string

const (
	MethodATS      Method = "ats"    // direct adapter for a recognized ATS URL
	MethodAPIProbe Method = "api"    // hosted-API query-parameter probe
	MethodLink     Method = "link"   // ATS link discovered inside the page
	MethodSchema   Method = "schema" // schema.org JobPosting markup
	MethodHTML     Method = "html"   // anchor pattern extraction
	MethodAI       Method = "ai"     // LLM-assisted extraction
	MethodNone     Method = "none"   // nothing usable found
)

// BumpThreshold separates a normal posting from a repost: a job whose
// posted timestamp trails its creation by more than this was bumped.
const BumpThreshold = 48 * time.Hour

// DisplayWindow is how long a posting stays in the default view, counted
// from its posted date (or first-seen date when the source gives none).
const DisplayWindow = 48 * time.Hour

// Job is the unified representation of a posting from any source.
type Job struct {
	ID               string     // globally unique, stable across refreshes (see adapter ID rules)
	Title            string     // job title
	Location         string     // free text, multi-part joined by ", "
	URL              string     // direct link
	Description      string     // plain-text description, may be empty
	WorkSite         string     // remote/hybrid/onsite classification, may be empty
	Source           Source     // origin tag
	Company          string     // company name, may be empty
	Department       string     // department or category, may be empty
	PostedAt         *time.Time // last posting/bump timestamp; nil means unknown
	OriginalPostedAt *time.Time // true creation timestamp when the source exposes one
	FirstSeen        time.Time  // our clock, set when the engine first observed the ID
}

// Bumped reports whether this posting was re-surfaced well after its true
// creation. A refresh within BumpThreshold of creation is a normal posting.
func (j Job) Bumped() bool {
	if j.PostedAt == nil || j.OriginalPostedAt == nil {
		return false
	}
	return j.PostedAt.Sub(*j.OriginalPostedAt) > BumpThreshold
}

// RecentlyBumped reports whether the posting is an active repost: bumped,
// and the bump happened within the display window. Such postings are
// eligible for re-surfacing and re-notification even if previously seen.
func (j Job) RecentlyBumped(now time.Time) bool {
	return j.Bumped() && now.Sub(*j.PostedAt) <= DisplayWindow
}

// DisplayDate is the timestamp the view uses for the age window: the posted
// date when known, otherwise the first-seen date.
func (j Job) DisplayDate() time.Time {
	if j.PostedAt != nil {
		return *j.PostedAt
	}
	return j.FirstSeen
}

// FetchParams carries the user's filter keywords down to fetchers that can
// filter server-side. Both fields are comma-separated keyword lists; empty
// means unfiltered. Fetchers without server-side filtering ignore them.
type FetchParams struct {
	Title    string
	Location string
}

// JobFetcher fetches current job listings from one source.
type JobFetcher interface {
	FetchJobs(ctx context.Context, params FetchParams) ([]Job, error)
}

// Notifier delivers a grouped notification for a batch of new jobs.
// Best-effort and fire-and-forget from the engine's perspective.
type Notifier interface {
	Notify(jobs []Job) error
}

// StatusFunc receives human-readable progress lines from long-running
// detection steps. Always optional; callers must tolerate nil.
type StatusFunc func(message string)

// Report invokes the callback if one is attached. Correctness never depends
// on a listener being present.
func (f StatusFunc) Report(message string) {
	if f != nil {
		f(message)
	}
}

// Extractor is the AI-assisted extraction collaborator. ParseJobs may take
// substantially longer than other cascade steps and may invoke status zero
// or more times before returning.
type Extractor interface {
	ParseJobs(ctx context.Context, url string, params FetchParams, status StatusFunc) ([]Job, error)
}
