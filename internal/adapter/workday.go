package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

const workdayPageSize = 20

// workdayListingResponse is the response from the Workday jobs listing endpoint.
type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

// workdayListingRequest is the POST body for the Workday jobs listing endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// workdayDetailResponse is the response from the Workday job detail endpoint.
type workdayDetailResponse struct {
	JobPostingInfo workdayJobDetail `json:"jobPostingInfo"`
}

type workdayJobDetail struct {
	Title               string   `json:"title"`
	JobDescription      string   `json:"jobDescription"`
	Location            string   `json:"location"`
	AdditionalLocations []string `json:"additionalLocations"`
	PostedOn            string   `json:"postedOn"`
	StartDate           string   `json:"startDate"`
	ExternalURL         string   `json:"externalUrl"`
	RemoteType          string   `json:"remoteType"`
}

// WorkdayAdapter fetches jobs from a Workday career site.
type WorkdayAdapter struct {
	baseURL     string
	companyName string
	client      *http.Client
}

// NewWorkdayAdapter creates a new adapter for a Workday career site. baseURL
// is the cxs endpoint for the site, e.g.
// https://acme.wd1.myworkdayjobs.com/wday/cxs/acme/External.
func NewWorkdayAdapter(baseURL string, companyName string, client *http.Client) *WorkdayAdapter {
	return &WorkdayAdapter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		companyName: companyName,
		client:      client,
	}
}

// FetchJobs retrieves jobs in two phases: paginate through POST /jobs
// sequentially (passing the title keywords as Workday search text), then GET
// /job/{externalPath} for each recent listing to fill in the description,
// work-site and apply URL. Older listings keep listing-level data only, so a
// large board does not cost one detail request per historical posting every
// cycle. Pagination stops on a short page, when the reported total is
// reached, or at the engine-wide result cap, with a short delay between
// pages.
func (a *WorkdayAdapter) FetchJobs(ctx context.Context, params model.FetchParams) ([]model.Job, error) {
	// Workday's searchText is a plain query, not a keyword list; use the
	// first title keyword to narrow server-side and let the view do the rest.
	searchText := ""
	if parts := strings.Split(params.Title, ","); len(parts) > 0 {
		searchText = strings.TrimSpace(parts[0])
	}

	var all []workdayListing
	offset := 0

	for {
		page, total, err := a.fetchPage(ctx, searchText, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < workdayPageSize || len(all) >= resultCap {
			break
		}
		offset += workdayPageSize
		if offset >= total {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	jobs := make([]model.Job, 0, len(all))
	for _, l := range all {
		if !isRecentListing(l.PostedOn) {
			jobs = append(jobs, a.jobFromListing(l))
			continue
		}
		job, err := a.fetchDetail(ctx, l)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (a *WorkdayAdapter) fetchPage(ctx context.Context, searchText string, offset int) ([]workdayListing, int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body := workdayListingRequest{
		AppliedFacets: map[string]any{},
		Limit:         workdayPageSize,
		Offset:        offset,
		SearchText:    searchText,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("workday listing marshal for %s: %w", a.companyName, err)
	}

	url := a.baseURL + "/jobs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("workday listing request for %s: %w", a.companyName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("workday listing fetch for %s: %w", a.companyName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("workday listing fetch for %s: unexpected status %d", a.companyName, resp.StatusCode),
		}
	}

	var listResp workdayListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, 0, &model.DecodeError{Source: model.SourceWorkday, Err: err}
	}

	return listResp.JobPostings, listResp.Total, nil
}

// jobFromListing builds a Job from listing-level data. The externalPath is
// the stable requisition path, reused as the native id. The public posting
// URL is the career-site path without the cxs API prefix.
func (a *WorkdayAdapter) jobFromListing(l workdayListing) model.Job {
	job := model.Job{
		ID:       "workday-" + strings.TrimPrefix(l.ExternalPath, "/"),
		Title:    l.Title,
		Location: l.LocationsText,
		URL:      publicWorkdayURL(a.baseURL) + l.ExternalPath,
		Source:   model.SourceWorkday,
		Company:  a.companyName,
	}
	job.PostedAt = parsePostedOn(l.PostedOn)
	return job
}

// fetchDetail GETs the detail endpoint for one listing and overlays the
// richer fields (description, work site, real apply URL, joined locations)
// onto the listing-level job.
func (a *WorkdayAdapter) fetchDetail(ctx context.Context, l workdayListing) (model.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := a.baseURL + "/" + strings.TrimPrefix(l.ExternalPath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Job{}, fmt.Errorf("workday detail request for %s: %w", a.companyName, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return model.Job{}, fmt.Errorf("workday detail fetch for %s: %w", a.companyName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Job{}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("workday detail fetch for %s: unexpected status %d", a.companyName, resp.StatusCode),
		}
	}

	var detail workdayDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return model.Job{}, &model.DecodeError{Source: model.SourceWorkday, Err: err}
	}

	info := detail.JobPostingInfo
	job := a.jobFromListing(l)

	if info.Title != "" {
		job.Title = info.Title
	}
	if info.Location != "" {
		job.Location = info.Location
		if len(info.AdditionalLocations) > 0 {
			job.Location += "; " + strings.Join(info.AdditionalLocations, "; ")
		}
	}
	if info.ExternalURL != "" {
		job.URL = info.ExternalURL
	}
	job.Description = extractText(info.JobDescription)
	job.WorkSite = info.RemoteType

	// Prefer startDate (format "2006-01-02"), fall back to postedOn parsing.
	if info.StartDate != "" {
		if t, err := time.Parse("2006-01-02", info.StartDate); err == nil {
			job.PostedAt = &t
		}
	}

	return job, nil
}

// detailFreshDays bounds which listings get a detail fetch: anything recent
// enough to matter for the bump window.
const detailFreshDays = 2

// isRecentListing reports whether a relative posting date is fresh enough to
// justify the per-listing detail request.
func isRecentListing(postedOn string) bool {
	switch postedOn {
	case "Posted Today", "Posted Yesterday":
		return true
	}
	if m := daysAgoRegex.FindStringSubmatch(postedOn); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n <= detailFreshDays
		}
	}
	return false
}

// publicWorkdayURL strips the /wday/cxs/{tenant} API prefix so externalPath
// can be appended to form the browser-facing posting URL.
func publicWorkdayURL(base string) string {
	if i := strings.Index(base, "/wday/cxs/"); i >= 0 {
		rest := base[i+len("/wday/cxs/"):]
		// rest is "{tenant}/{site}"; the public site lives at /{site} under
		// the bare host, but keeping "{host}/en-US/{site}" shape is what
		// Workday links to. Fall back to the raw base when the shape is odd.
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) == 2 {
			return base[:i] + "/en-US/" + parts[1]
		}
	}
	return base
}

var daysAgoRegex = regexp.MustCompile(`^Posted (\d+)\+? Days? Ago$`)

// parsePostedOn converts a Workday relative date string to an approximate timestamp.
func parsePostedOn(postedOn string) *time.Time {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch postedOn {
	case "Posted Today":
		return &today
	case "Posted Yesterday":
		t := today.AddDate(0, 0, -1)
		return &t
	}

	if m := daysAgoRegex.FindStringSubmatch(postedOn); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			t := today.AddDate(0, 0, -n)
			return &t
		}
	}

	// Unknown format → treat the posting date as unknown.
	return nil
}
