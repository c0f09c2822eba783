package board

import (
	"net/url"
	"testing"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

func TestDetectSource(t *testing.T) {
	tests := []struct {
		url  string
		want model.Source
	}{
		{"https://boards.greenhouse.io/acme", model.SourceGreenhouse},
		{"https://job-boards.greenhouse.io/acme", model.SourceGreenhouse},
		{"https://jobs.lever.co/acme", model.SourceLever},
		{"https://jobs.ashbyhq.com/acme", model.SourceAshby},
		{"https://acme.wd1.myworkdayjobs.com/en-US/External", model.SourceWorkday},
		{"https://careers.example.com/jobs", model.SourceUnknown},
	}

	for _, tc := range tests {
		u, err := url.Parse(tc.url)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.url, err)
		}
		if got := DetectSource(u); got != tc.want {
			t.Errorf("DetectSource(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestImport_DetectsSourceAndReportsFailures(t *testing.T) {
	text := "https://jobs.lever.co/acme | Acme | enabled\nnot-a-url"

	added, failed := Import(text, nil)

	if len(added) != 1 {
		t.Fatalf("expected 1 board added, got %d", len(added))
	}
	if added[0].Source != model.SourceLever {
		t.Errorf("expected source lever, got %s", added[0].Source)
	}
	if added[0].Name != "Acme" {
		t.Errorf("expected name Acme, got %s", added[0].Name)
	}
	if !added[0].Enabled {
		t.Error("expected board to be enabled")
	}
	if len(failed) != 1 || failed[0] != "not-a-url" {
		t.Errorf("expected 1 failed line 'not-a-url', got %v", failed)
	}
}

func TestImport_SkipsDuplicates(t *testing.T) {
	existing := []model.Board{{URL: "https://jobs.lever.co/acme", Name: "Acme"}}
	text := "https://jobs.lever.co/acme | Acme Again | enabled\n" +
		"https://boards.greenhouse.io/beta | Beta | disabled\n" +
		"https://boards.greenhouse.io/beta | Beta Dup | enabled\n"

	added, failed := Import(text, existing)

	if len(failed) != 0 {
		t.Fatalf("expected no failures, got %v", failed)
	}
	if len(added) != 1 {
		t.Fatalf("expected 1 board added, got %d", len(added))
	}
	if added[0].Name != "Beta" || added[0].Enabled {
		t.Errorf("unexpected board: %+v", added[0])
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	boards := []model.Board{
		{URL: "https://jobs.lever.co/acme", Name: "Acme", Enabled: true, Source: model.SourceLever},
		{URL: "https://careers.example.com/jobs", Name: "Example", Enabled: false, Source: model.SourceUnknown},
	}

	added, failed := Import(Export(boards), nil)
	if len(failed) != 0 {
		t.Fatalf("round trip produced failures: %v", failed)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(added))
	}
	for i := range boards {
		if added[i].URL != boards[i].URL || added[i].Name != boards[i].Name || added[i].Enabled != boards[i].Enabled {
			t.Errorf("board %d mismatch: got %+v want %+v", i, added[i], boards[i])
		}
	}
}

func TestImport_BadEnabledFlag(t *testing.T) {
	_, failed := Import("https://jobs.lever.co/x | X | sometimes", nil)
	if len(failed) != 1 {
		t.Fatalf("expected line with bad flag to fail, got %v", failed)
	}
}
