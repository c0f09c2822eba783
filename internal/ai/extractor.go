package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// maxPageText caps how much page text is sent to the LLM.
const maxPageText = 60000

// LLMExtractor implements model.Extractor using an LLM: it fetches the page,
// strips it to text, and asks the model for a structured job list. This is
// the most expensive cascade step and only runs when structured extraction
// found nothing.
type LLMExtractor struct {
	provider LLMProvider
	client   *http.Client
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMExtractor creates an extractor backed by the given provider.
func NewLLMExtractor(provider LLMProvider, client *http.Client, tmpl *template.Template, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider: provider,
		client:   client,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// rawExtraction is the JSON shape returned by the LLM (matches jobListSchema).
type rawExtraction struct {
	Jobs []struct {
		Title    string `json:"title"`
		Location string `json:"location"`
		URL      string `json:"url"`
		WorkSite string `json:"work_site"`
	} `json:"jobs"`
}

// ParseJobs fetches url, reduces it to text and extracts a job list.
// The status callback reports progress and may be nil.
func (e *LLMExtractor) ParseJobs(ctx context.Context, url string, params model.FetchParams, status model.StatusFunc) ([]model.Job, error) {
	status.Report("Fetching page for AI extraction")
	pageText, err := e.fetchPageText(ctx, url)
	if err != nil {
		return nil, err
	}

	var promptBuf bytes.Buffer
	err = e.tmpl.Execute(&promptBuf, struct {
		URL            string
		PageText       string
		TitleFilter    string
		LocationFilter string
	}{
		URL:            url,
		PageText:       pageText,
		TitleFilter:    params.Title,
		LocationFilter: params.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("render extraction prompt: %w", err)
	}

	status.Report("Asking the model for job listings")
	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	var parsed rawExtraction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal extraction JSON: %w", err)
	}

	now := time.Now()
	jobs := make([]model.Job, 0, len(parsed.Jobs))
	for _, rj := range parsed.Jobs {
		if rj.Title == "" {
			continue
		}
		jobURL := rj.URL
		if jobURL == "" {
			jobURL = url
		}
		jobs = append(jobs, model.Job{
			Title:     rj.Title,
			Location:  rj.Location,
			URL:       jobURL,
			WorkSite:  rj.WorkSite,
			Source:    model.SourceUnknown,
			FirstSeen: now,
		})
	}

	status.Report(fmt.Sprintf("AI extraction found %d jobs", len(jobs)))
	e.logger.Debug("ai extraction complete", "url", url, "jobs", len(jobs))
	return jobs, nil
}

var tagRegex = regexp.MustCompile(`(?s)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>|<[^>]*>`)

// fetchPageText GETs the page and reduces it to whitespace-collapsed text,
// truncated to maxPageText.
func (e *LLMExtractor) fetchPageText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	text := tagRegex.ReplaceAllString(string(data), " ")
	text = strings.Join(strings.Fields(html.UnescapeString(text)), " ")
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return text, nil
}
