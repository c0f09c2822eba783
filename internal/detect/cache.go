package detect

import (
	"sync"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// DetectionEntry records a previously discovered ATS endpoint for a domain.
type DetectionEntry struct {
	Type model.Source
	URL  string
}

// Caches holds the process-lifetime detection and schema caches, both keyed
// by domain (the hostname, not the full URL — ATS discovery is a property of
// the site). They are advisory: a miss only costs a repeat of the cascade.
// Writes are idempotent last-writer-wins upserts, so concurrent detection of
// the same domain races benignly.
type Caches struct {
	mu        sync.Mutex
	detection map[string]DetectionEntry
	aiFailed  map[string]bool
}

// NewCaches creates empty caches.
func NewCaches() *Caches {
	return &Caches{
		detection: make(map[string]DetectionEntry),
		aiFailed:  make(map[string]bool),
	}
}

// Detection returns the cached ATS endpoint for domain, if any.
func (c *Caches) Detection(domain string) (DetectionEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.detection[domain]
	return e, ok
}

// StoreDetection records a successful discovery for domain.
func (c *Caches) StoreDetection(domain string, atsType model.Source, atsURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detection[domain] = DetectionEntry{Type: atsType, URL: atsURL}
}

// ExtractionFailed reports whether AI extraction has already failed for
// domain. Used as a negative cache to avoid repeated expensive calls.
func (c *Caches) ExtractionFailed(domain string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aiFailed[domain]
}

// MarkExtractionFailed records an AI extraction failure for domain.
func (c *Caches) MarkExtractionFailed(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aiFailed[domain] = true
}

// Invalidate clears all cached state for domain. Called when a board is
// removed so that re-adding the same domain retries detection and AI
// extraction from scratch instead of replaying a stale failure.
func (c *Caches) Invalidate(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.detection, domain)
	delete(c.aiFailed, domain)
}
