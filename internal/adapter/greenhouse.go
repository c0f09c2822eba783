package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64                  `json:"id"`
	Title          string                 `json:"title"`
	Location       greenhouseLocation     `json:"location"`
	AbsoluteURL    string                 `json:"absolute_url"`
	Content        string                 `json:"content"`
	UpdatedAt      string                 `json:"updated_at"`
	FirstPublished string                 `json:"first_published"`
	Departments    []greenhouseDepartment `json:"departments"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

type greenhouseDepartment struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs  []greenhouseJob `json:"jobs"`
	Error string          `json:"error"`
}

// GreenhouseAdapter fetches jobs from the Greenhouse public boards API.
type GreenhouseAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, companyName string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// FetchJobs retrieves all jobs from the Greenhouse board and normalizes them
// into the unified Job model. Greenhouse returns the full board in one page
// and exposes both first_published and updated_at, which drive the repost
// model: first_published is the true creation, updated_at the last bump.
func (a *GreenhouseAdapter) FetchJobs(ctx context.Context, _ model.FetchParams) ([]model.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("greenhouse fetch for %s: unexpected status %d", a.boardToken, resp.StatusCode),
		}
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, &model.DecodeError{Source: model.SourceGreenhouse, Err: err}
	}
	if ghResp.Error != "" {
		return nil, &model.APIError{Source: model.SourceGreenhouse, Message: ghResp.Error}
	}

	jobs := make([]model.Job, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		job := model.Job{
			ID:          fmt.Sprintf("greenhouse-%d", gj.ID),
			Title:       gj.Title,
			Location:    gj.Location.Name,
			URL:         gj.AbsoluteURL,
			Description: extractText(gj.Content),
			Source:      model.SourceGreenhouse,
			Company:     a.companyName,
		}
		if len(gj.Departments) > 0 {
			job.Department = gj.Departments[0].Name
		}

		if t, err := time.Parse(time.RFC3339, gj.UpdatedAt); err == nil {
			job.PostedAt = &t
		}
		if t, err := time.Parse(time.RFC3339, gj.FirstPublished); err == nil {
			job.OriginalPostedAt = &t
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
