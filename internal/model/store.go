package model

import (
	"net/url"
	"strings"
	"time"
)

// Board is one monitored endpoint. The source tag is derived from the URL
// shape at creation time; unknown boards go through the detection cascade,
// and a successful detection is persisted back onto the board so later
// cycles skip straight to the discovered ATS.
type Board struct {
	Name            string
	URL             string
	Source          Source
	Enabled         bool
	LastFetched     *time.Time
	DetectedATSType Source
	DetectedATSURL  string
}

// Domain returns the hostname component of the board URL, the key used by
// the detection and schema caches. Empty when the URL is unparseable.
func (b Board) Domain() string {
	u, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Store is the durable persistence collaborator. Every load is fallible;
// callers treat failure as "proceed with empty state". Saves are
// best-effort: a failure is logged and never rolls back in-memory state.
type Store interface {
	LoadJobs() ([]Job, error)
	SaveJobs(jobs []Job) error

	// LoadTracking returns first-seen timestamps per job id for one source.
	LoadTracking(source string) (map[string]time.Time, error)
	// SaveTracking upserts first-seen entries for jobs (preserving existing
	// timestamps) and prunes entries older than retention.
	SaveTracking(jobs []Job, source string, now time.Time, retention time.Duration) error
	// ClearTracking drops all entries for one source, used on board removal.
	ClearTracking(source string) error

	LoadBoards() ([]Board, error)
	SaveBoards(boards []Board) error

	LoadStarred() (map[string]bool, error)
	SaveStarred(ids map[string]bool) error
	LoadApplied() (map[string]bool, error)
	SaveApplied(ids map[string]bool) error
}
