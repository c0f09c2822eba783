package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

func TestAshbyFetchJobs_SkipsUnlisted(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "abc-123",
				"title": "Platform Engineer",
				"department": "Infrastructure",
				"location": "Remote",
				"jobUrl": "https://jobs.ashbyhq.com/acme/abc-123",
				"publishedAt": "2026-03-01T12:00:00Z",
				"isListed": true,
				"isRemote": true
			},
			{
				"id": "def-456",
				"title": "Hidden Role",
				"jobUrl": "https://jobs.ashbyhq.com/acme/def-456",
				"isListed": false
			}
		]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewAshbyAdapter("acme", "Acme", rewriteClient(srv))

	jobs, err := a.FetchJobs(context.Background(), model.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 listed job, got %d", len(jobs))
	}

	j := jobs[0]
	if j.ID != "ashby-abc-123" {
		t.Errorf("expected ID ashby-abc-123, got %s", j.ID)
	}
	if j.WorkSite != "Remote" {
		t.Errorf("expected work site Remote, got %q", j.WorkSite)
	}
	if j.Department != "Infrastructure" {
		t.Errorf("expected department Infrastructure, got %q", j.Department)
	}
	if j.PostedAt == nil {
		t.Error("expected PostedAt from publishedAt")
	}
}

func TestAshbyFetchJobs_FallsBackToURLID(t *testing.T) {
	payload := `{"jobs": [{"title": "Engineer", "jobUrl": "https://jobs.ashbyhq.com/acme/x", "isListed": true}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	a := NewAshbyAdapter("acme", "Acme", rewriteClient(srv))

	jobs, err := a.FetchJobs(context.Background(), model.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobs[0].ID != "ashby-https://jobs.ashbyhq.com/acme/x" {
		t.Errorf("expected URL-based fallback id, got %s", jobs[0].ID)
	}
}
