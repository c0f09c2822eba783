package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

const (
	leverBaseURL  = "https://api.lever.co/v0/postings"
	leverPageSize = 100
)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// LeverAdapter fetches jobs from the Lever public postings API.
type LeverAdapter struct {
	companySlug string
	companyName string
	client      *http.Client
}

// NewLeverAdapter creates a new adapter for a Lever board.
func NewLeverAdapter(companySlug string, companyName string, client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
	}
}

// FetchJobs retrieves all jobs from the Lever board, paging sequentially via
// skip/limit until a short page or the engine-wide result cap. A short delay
// separates page requests.
func (a *LeverAdapter) FetchJobs(ctx context.Context, _ model.FetchParams) ([]model.Job, error) {
	var all []leverJob
	skip := 0

	for {
		page, err := a.fetchPage(ctx, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < leverPageSize || len(all) >= resultCap {
			break
		}
		skip += leverPageSize

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	jobs := make([]model.Job, 0, len(all))
	for _, lj := range all {
		// Prefer allLocations when present, fall back to the single location.
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		job := model.Job{
			ID:          "lever-" + lj.ID,
			Title:       lj.Text,
			Location:    location,
			URL:         lj.HostedURL,
			Description: lj.DescriptionPlain,
			WorkSite:    lj.WorkplaceType,
			Source:      model.SourceLever,
			Company:     a.companyName,
			Department:  lj.Categories.Department,
		}
		if job.Department == "" {
			job.Department = lj.Categories.Team
		}

		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt)
			job.PostedAt = &t
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (a *LeverAdapter) fetchPage(ctx context.Context, skip int) ([]leverJob, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s?mode=json&skip=%d&limit=%d", leverBaseURL, a.companySlug, skip, leverPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("lever fetch for %s: unexpected status %d", a.companySlug, resp.StatusCode),
		}
	}

	var page []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &model.DecodeError{Source: model.SourceLever, Err: err}
	}

	return page, nil
}
