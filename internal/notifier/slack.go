package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxJobsPerMessage caps how many jobs one grouped message details; the rest
// are summarized in a trailing line.
const maxJobsPerMessage = 10

// SlackNotifier sends job alerts to a Slack channel via Incoming Webhooks.
// All jobs from one cycle go out as a single grouped message.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts grouped job alerts to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends one grouped Block Kit message covering all jobs. Best-effort:
// a delivery failure is returned for logging but carries no retry obligation
// beyond the single rate-limit retry below.
func (s *SlackNotifier) Notify(jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	body, err := json.Marshal(buildGroupedPayload(jobs))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack notification sent", "jobs", len(jobs), "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack notification sent", "jobs", len(jobs))
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a dummy job notification to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	testJob := model.Job{
		ID:        "test-001",
		Company:   "Flare Test",
		Title:     "Test Notification — Integration Verified",
		Location:  "Everywhere",
		URL:       "https://example.com/jobs",
		PostedAt:  &now,
		FirstSeen: now,
		Source:    "test",
	}
	return n.Notify([]model.Job{testJob})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func buildGroupedPayload(jobs []model.Job) slackPayload {
	header := fmt.Sprintf("🚀 %d new job", len(jobs))
	if len(jobs) > 1 {
		header = fmt.Sprintf("🚀 %d new jobs", len(jobs))
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: header},
		},
	}

	shown := jobs
	if len(shown) > maxJobsPerMessage {
		shown = shown[:maxJobsPerMessage]
	}

	for _, j := range shown {
		title := fmt.Sprintf("*<%s|%s>*", j.URL, j.Title)
		if j.URL == "" {
			title = "*" + j.Title + "*"
		}
		var details []string
		if j.Company != "" {
			details = append(details, capitalize(j.Company))
		}
		if j.Location != "" {
			details = append(details, j.Location)
		}
		details = append(details, capitalize(string(j.Source)))
		if j.Bumped() {
			details = append(details, "reposted")
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: title + "\n" + strings.Join(details, " · ")},
		})
	}

	if rest := len(jobs) - len(shown); rest > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("…and %d more", rest)},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}
