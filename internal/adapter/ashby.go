package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Department  string `json:"department"`
	Location    string `json:"location"`
	JobURL      string `json:"jobUrl"`
	PublishedAt string `json:"publishedAt"`
	IsListed    bool   `json:"isListed"`
	IsRemote    bool   `json:"isRemote"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyAdapter fetches jobs from the Ashby public job board API.
type AshbyAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewAshbyAdapter creates a new adapter for an Ashby job board.
func NewAshbyAdapter(boardToken string, companyName string, client *http.Client) *AshbyAdapter {
	return &AshbyAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// FetchJobs retrieves all listed jobs from the Ashby job board and normalizes
// them into the unified Job model.
func (a *AshbyAdapter) FetchJobs(ctx context.Context, _ model.FetchParams) ([]model.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", ashbyBaseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("ashby fetch for %s: unexpected status %d", a.boardToken, resp.StatusCode),
		}
	}

	var ashbyResp ashbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ashbyResp); err != nil {
		return nil, &model.DecodeError{Source: model.SourceAshby, Err: err}
	}

	jobs := make([]model.Job, 0, len(ashbyResp.Jobs))
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}

		// Older board payloads omit the id field; the job URL is the only
		// stable identifier in that case.
		id := aj.ID
		if id == "" {
			id = aj.JobURL
		}

		job := model.Job{
			ID:         "ashby-" + id,
			Title:      aj.Title,
			Location:   aj.Location,
			URL:        aj.JobURL,
			Source:     model.SourceAshby,
			Company:    a.companyName,
			Department: aj.Department,
		}
		if aj.IsRemote {
			job.WorkSite = "Remote"
		}

		if t, err := time.Parse(time.RFC3339, aj.PublishedAt); err == nil {
			job.PostedAt = &t
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
