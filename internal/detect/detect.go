// Package detect decides how to extract job listings from an arbitrary URL.
// Strategies are tried in strict priority order — cached/direct ATS match,
// hosted-API probe, embedded ATS link, schema.org markup, anchor patterns,
// AI extraction — stopping at the first one that yields a usable result.
package detect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dchernopolskiy/Flare-sub001/internal/adapter"
	"github.com/dchernopolskiy/Flare-sub001/internal/board"
	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// schemaThreshold is the minimum number of valid schema.org postings for
// that step to count as usable.
const schemaThreshold = 3

// maxPageBytes bounds how much of a career page is read into memory.
const maxPageBytes = 4 << 20

// Result is the outcome of a cascade run. Method tags how the jobs were
// obtained so downstream code can label them without re-deriving it. When a
// supported ATS was discovered behind the page, ATSType/ATSURL carry the
// endpoint so the caller can persist it and skip detection next cycle.
type Result struct {
	Jobs    []model.Job
	Method  model.Method
	ATSType model.Source
	ATSURL  string
}

// Detector runs the cascade. A nil extractor (or AIEnabled false) disables
// the final step.
type Detector struct {
	client    *http.Client
	caches    *Caches
	extractor model.Extractor
	aiEnabled bool
	logger    *slog.Logger
}

// NewDetector wires a detector with its caches and optional AI extractor.
func NewDetector(client *http.Client, caches *Caches, extractor model.Extractor, aiEnabled bool, logger *slog.Logger) *Detector {
	return &Detector{
		client:    client,
		caches:    caches,
		extractor: extractor,
		aiEnabled: aiEnabled,
		logger:    logger,
	}
}

// Detect resolves rawURL to a set of jobs and the method used. An empty
// result after every step is a normal outcome (Method none), not an error.
// The status callback is fire-and-forget; correctness never depends on it.
func (d *Detector) Detect(ctx context.Context, rawURL string, params model.FetchParams, status model.StatusFunc) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidURL, rawURL)
	}
	domain := strings.ToLower(u.Hostname())

	// Step 1: cached detection bypasses everything else for this domain.
	if entry, ok := d.caches.Detection(domain); ok {
		status.Report(fmt.Sprintf("Using cached %s endpoint for %s", entry.Type, domain))
		jobs, err := d.fetchVia(ctx, entry.Type, entry.URL, params)
		if err != nil {
			return nil, err
		}
		return &Result{Jobs: jobs, Method: model.MethodATS, ATSType: entry.Type, ATSURL: entry.URL}, nil
	}

	// Step 1, direct: the URL itself matches a supported ATS pattern.
	if src := board.DetectSource(u); src != model.SourceUnknown {
		status.Report(fmt.Sprintf("Recognized %s URL, fetching directly", src))
		jobs, err := d.fetchVia(ctx, src, rawURL, params)
		if err == nil && len(jobs) > 0 {
			d.caches.StoreDetection(domain, src, rawURL)
			return &Result{Jobs: jobs, Method: model.MethodATS, ATSType: src, ATSURL: rawURL}, nil
		}
		if err != nil {
			d.logger.Debug("direct ATS fetch failed, trying next step", "url", rawURL, "error", err)
		}
	}

	// Step 2: hosted-API probe. Some boards serve structured JSON when a
	// known query parameter is appended; one lightweight request tells us.
	status.Report("Probing for a hosted job API")
	if jobs := d.probeHostedAPI(ctx, u); len(jobs) > 0 {
		return &Result{Jobs: jobs, Method: model.MethodAPIProbe}, nil
	}

	// Steps 3-5 all work on the fetched page.
	status.Report("Fetching page " + rawURL)
	body, fetchErr := d.fetchPage(ctx, rawURL)
	if fetchErr != nil {
		d.logger.Debug("page fetch failed, skipping to AI step", "url", rawURL, "error", fetchErr)
	} else {
		// Step 3: scan the raw body (anchors, tag-manager payloads, inline
		// scripts) for links to a supported ATS, then recurse into it.
		status.Report("Scanning page for embedded ATS links")
		if res, ok := d.tryEmbeddedLink(ctx, domain, body, params, status); ok {
			return res, nil
		}

		// Step 4: schema.org JobPosting markup.
		status.Report("Parsing schema.org job postings")
		if jobs := schemaOrgJobs(body, u); len(jobs) >= schemaThreshold {
			status.Report(fmt.Sprintf("Found %d schema.org postings", len(jobs)))
			return &Result{Jobs: jobs, Method: model.MethodSchema}, nil
		}

		// Step 5: anchor pattern extraction.
		status.Report("Scanning anchors for job links")
		if jobs := anchorJobs(body, u); len(jobs) > 0 {
			status.Report(fmt.Sprintf("Found %d job links", len(jobs)))
			return &Result{Jobs: jobs, Method: model.MethodHTML}, nil
		}
	}

	// Step 6: AI extraction, only when structured methods found nothing and
	// the feature is enabled. Domains that already failed it are skipped.
	if d.aiEnabled && d.extractor != nil {
		if d.caches.ExtractionFailed(domain) {
			status.Report("Skipping AI extraction (previously failed for " + domain + ")")
		} else {
			status.Report("Running AI-assisted extraction")
			jobs, err := d.extractor.ParseJobs(ctx, rawURL, params, status)
			if err != nil || len(jobs) == 0 {
				if err != nil {
					d.logger.Warn("ai extraction failed", "url", rawURL, "error", err)
				}
				d.caches.MarkExtractionFailed(domain)
			} else {
				tagSynthetic(jobs, "ai")
				return &Result{Jobs: jobs, Method: model.MethodAI}, nil
			}
		}
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	status.Report("No jobs found by any method")
	return &Result{Method: model.MethodNone}, nil
}

// tryEmbeddedLink looks for a supported ATS URL inside the page body and, if
// one fetches successfully, persists the discovery so future cycles skip
// straight to it.
func (d *Detector) tryEmbeddedLink(ctx context.Context, domain, body string, params model.FetchParams, status model.StatusFunc) (*Result, bool) {
	atsURL, src := findATSLink(body)
	if atsURL == "" {
		return nil, false
	}

	status.Report(fmt.Sprintf("Found embedded %s link: %s", src, atsURL))
	jobs, err := d.fetchVia(ctx, src, atsURL, params)
	if err != nil || len(jobs) == 0 {
		if err != nil {
			d.logger.Debug("embedded ATS fetch failed", "url", atsURL, "error", err)
		}
		return nil, false
	}

	d.caches.StoreDetection(domain, src, atsURL)
	return &Result{Jobs: jobs, Method: model.MethodLink, ATSType: src, ATSURL: atsURL}, true
}

func (d *Detector) fetchVia(ctx context.Context, src model.Source, atsURL string, params model.FetchParams) ([]model.Job, error) {
	fetcher, err := adapter.ForURL(src, atsURL, "", d.client)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchJobs(ctx, params)
}

// fetchPage GETs a page with a browser-ish accept header and returns up to
// maxPageBytes of the body.
func (d *Detector) fetchPage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	if len(data) == 0 {
		return "", &model.InvalidResponseError{Detail: "empty body from " + rawURL}
	}
	return string(data), nil
}
