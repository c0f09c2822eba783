package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeJobs(n int) []model.Job {
	jobs := make([]model.Job, n)
	for i := range jobs {
		jobs[i] = model.Job{
			ID:       fmt.Sprintf("lever-%d", i),
			Title:    fmt.Sprintf("Engineer %d", i),
			Company:  "acme",
			Location: "Remote",
			URL:      fmt.Sprintf("https://example.com/%d", i),
			Source:   model.SourceLever,
		}
	}
	return jobs
}

func TestNotify_SingleGroupedMessage(t *testing.T) {
	var requests int
	var captured slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(makeJobs(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requests != 1 {
		t.Fatalf("expected 1 grouped request for 3 jobs, got %d", requests)
	}
	if len(captured.Blocks) == 0 || captured.Blocks[0].Type != "header" {
		t.Fatalf("expected header block, got %+v", captured.Blocks)
	}
	if !strings.Contains(captured.Blocks[0].Text.Text, "3 new jobs") {
		t.Errorf("unexpected header text: %q", captured.Blocks[0].Text.Text)
	}
}

func TestNotify_CapsDetailedJobs(t *testing.T) {
	var captured slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(makeJobs(14)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var overflow bool
	sections := 0
	for _, b := range captured.Blocks {
		if b.Type == "section" && b.Text != nil {
			if strings.Contains(b.Text.Text, "and 4 more") {
				overflow = true
				continue
			}
			sections++
		}
	}
	if sections != maxJobsPerMessage {
		t.Errorf("expected %d detailed jobs, got %d", maxJobsPerMessage, sections)
	}
	if !overflow {
		t.Error("expected overflow summary line")
	}
}

func TestNotify_EmptyJobsSendsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty job list")
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotify_RetriesOnRateLimit(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(makeJobs(1)); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if requests != 2 {
		t.Errorf("expected 2 requests, got %d", requests)
	}
}

func TestNotify_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify(makeJobs(1)); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNotify_RepostMarked(t *testing.T) {
	var buf bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(&buf, r.Body)
	}))
	defer srv.Close()

	original := time.Now().Add(-30 * 24 * time.Hour)
	posted := time.Now().Add(-time.Hour)
	job := model.Job{
		ID:               "greenhouse-9",
		Title:            "Staff Engineer",
		URL:              "https://example.com/9",
		Source:           model.SourceGreenhouse,
		PostedAt:         &posted,
		OriginalPostedAt: &original,
	}

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.Notify([]model.Job{job}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "reposted") {
		t.Error("expected bumped job marked as reposted")
	}
}
