package adapter

import (
	"strconv"
	"time"
)

const (
	// resultCap is the engine-wide safety limit on accumulated results for
	// a single source. Pagination stops once this many records are held.
	resultCap = 5000

	// pageDelay is the pause between consecutive page requests to the same
	// source, to stay a polite API consumer.
	pageDelay = 250 * time.Millisecond

	// requestTimeout bounds a single upstream request.
	requestTimeout = 15 * time.Second
)

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
