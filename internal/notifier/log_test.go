package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

func TestLogNotifier_Notify(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	posted := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	jobs := []model.Job{
		{ID: "lever-1", Company: "acme", Title: "Backend Engineer", Location: "Berlin", URL: "https://x/1", Source: model.SourceLever, PostedAt: &posted},
		{ID: "html-2", Title: "Designer", Source: model.SourceUnknown},
	}

	n := NewLogNotifier(logger)
	if err := n.Notify(jobs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "new job") != 2 {
		t.Errorf("expected 2 log lines, got:\n%s", out)
	}
	if !strings.Contains(out, "Backend Engineer") || !strings.Contains(out, "Designer") {
		t.Errorf("expected job titles in output:\n%s", out)
	}
}
