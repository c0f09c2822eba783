// Package board creates monitored-board configs from URLs and implements
// their line-oriented export/import format.
package board

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// New builds a board from a URL and display name, deriving the source tag
// from the URL shape.
func New(rawURL, name string, enabled bool) (model.Board, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.Board{}, fmt.Errorf("%w: %q", model.ErrInvalidURL, rawURL)
	}
	if name == "" {
		name = u.Hostname()
	}
	return model.Board{
		Name:    name,
		URL:     u.String(),
		Source:  DetectSource(u),
		Enabled: enabled,
	}, nil
}

// DetectSource maps a URL to a source tag by hostname pattern. Anything
// unrecognized is SourceUnknown and handled by the detection cascade.
func DetectSource(u *url.URL) model.Source {
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.HasSuffix(host, "greenhouse.io"):
		return model.SourceGreenhouse
	case strings.HasSuffix(host, "lever.co"):
		return model.SourceLever
	case strings.HasSuffix(host, "ashbyhq.com"):
		return model.SourceAshby
	case strings.HasSuffix(host, "myworkdayjobs.com"):
		return model.SourceWorkday
	default:
		return model.SourceUnknown
	}
}

// Export serializes boards one per line as "url | name | enabled|disabled".
func Export(boards []model.Board) string {
	var sb strings.Builder
	for _, b := range boards {
		state := "disabled"
		if b.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(&sb, "%s | %s | %s\n", b.URL, b.Name, state)
	}
	return sb.String()
}

// Import parses the Export format. Malformed lines are skipped and returned
// verbatim so the caller can report them; duplicate URLs (against existing
// or within the input) are skipped silently.
func Import(text string, existing []model.Board) (added []model.Board, failed []string) {
	seen := make(map[string]bool, len(existing))
	for _, b := range existing {
		seen[b.URL] = true
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		b, err := parseLine(line)
		if err != nil {
			failed = append(failed, line)
			continue
		}
		if seen[b.URL] {
			continue
		}
		seen[b.URL] = true
		added = append(added, b)
	}
	return added, failed
}

func parseLine(line string) (model.Board, error) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	rawURL := parts[0]
	name := ""
	enabled := true
	if len(parts) > 1 {
		name = parts[1]
	}
	if len(parts) > 2 {
		switch parts[2] {
		case "enabled":
			enabled = true
		case "disabled":
			enabled = false
		default:
			return model.Board{}, fmt.Errorf("bad enabled flag %q", parts[2])
		}
	}

	return New(rawURL, name, enabled)
}
