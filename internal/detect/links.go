package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// atsLinkRegex matches an absolute URL on a supported ATS domain anywhere in
// a page body. A raw-body regex (not a DOM walk) on purpose: the link often
// hides inside analytics or tag-manager script payloads, not in an anchor.
var atsLinkRegex = regexp.MustCompile(`https?://[a-zA-Z0-9.\-]*(?:boards\.greenhouse\.io|job-boards\.greenhouse\.io|jobs\.lever\.co|jobs\.ashbyhq\.com|myworkdayjobs\.com)/[a-zA-Z0-9_\-./%]+`)

// findATSLink returns the first supported ATS URL embedded in body and its
// source tag, or empty when none is present.
func findATSLink(body string) (string, model.Source) {
	for _, match := range atsLinkRegex.FindAllString(body, 10) {
		match = strings.TrimRight(match, "/.")
		u, err := url.Parse(match)
		if err != nil {
			continue
		}
		if src := sourceOfHost(u.Hostname()); src != model.SourceUnknown {
			return match, src
		}
	}
	return "", model.SourceUnknown
}

func sourceOfHost(host string) model.Source {
	host = strings.ToLower(host)
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

const minLinkTextLen = 5

// jobHrefRegex matches URL path segments that look like job postings.
var jobHrefRegex = regexp.MustCompile(`(?i)/(jobs?|careers?|positions?|openings?|vacanc(?:y|ies))(/|$|\?|#)`)

// navTextRegex filters out pagination and navigation anchors whose text is
// not a job title.
var navTextRegex = regexp.MustCompile(`(?i)^(next|prev(ious)?|more|back|home|about( us)?|contact|apply( now)?|view all.*|see all.*|all (jobs|positions|openings)|log ?in|sign ?(in|up)|page ?\d*|\d+|[«»‹›.]+)$`)

// anchorJobs extracts candidate postings from anchor tags: links whose href
// contains a job/career/position/opening segment or whose class mentions
// "job", with pagination/navigation text filtered out and a minimum link
// text length enforced. Results are de-duplicated by target URL. Ids are
// synthetic and unstable across refreshes by design.
func anchorJobs(body string, base *url.URL) []model.Job {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var jobs []model.Job

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len(text) < minLinkTextLen || navTextRegex.MatchString(text) {
			return
		}

		class, _ := sel.Attr("class")
		if !jobHrefRegex.MatchString(href) && !strings.Contains(strings.ToLower(class), "job") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		abs := target.String()
		if abs == base.String() || seen[abs] {
			return
		}
		seen[abs] = true

		jobs = append(jobs, model.Job{
			ID:      "html-" + uuid.NewString(),
			Title:   text,
			URL:     abs,
			Source:  model.SourceUnknown,
			Company: base.Hostname(),
		})
	})

	return jobs
}

// hostedJob is the minimal shape shared by hosted job-API responses that the
// probe understands (Lever-style postings JSON).
type hostedJob struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Title      string `json:"title"`
	HostedURL  string `json:"hostedUrl"`
	ApplyURL   string `json:"applyUrl"`
	CreatedAt  int64  `json:"createdAt"`
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// probeHostedAPI issues a single lightweight request with the mode=json
// query convention used by hosted boards. A non-empty structured response
// short-circuits the cascade; anything else is a miss, never an error.
func (d *Detector) probeHostedAPI(ctx context.Context, base *url.URL) []model.Job {
	probe := *base
	q := probe.Query()
	q.Set("mode", "json")
	probe.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK ||
		!strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return nil
	}

	var raw []hostedJob
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil
	}

	var jobs []model.Job
	for _, hj := range raw {
		title := hj.Text
		if title == "" {
			title = hj.Title
		}
		if title == "" {
			continue
		}

		job := model.Job{
			Title:    title,
			Location: hj.Categories.Location,
			URL:      hj.HostedURL,
			Source:   model.SourceUnknown,
			Company:  base.Hostname(),
		}
		if job.URL == "" {
			job.URL = hj.ApplyURL
		}
		if hj.ID != "" {
			job.ID = "api-" + hj.ID
		} else {
			job.ID = "api-" + uuid.NewString()
		}
		if hj.CreatedAt > 0 {
			t := time.UnixMilli(hj.CreatedAt)
			job.PostedAt = &t
		}

		jobs = append(jobs, job)
	}
	return jobs
}

// tagSynthetic assigns fresh method-tagged synthetic ids. Callers must treat
// these as unstable across refreshes.
func tagSynthetic(jobs []model.Job, prefix string) {
	for i := range jobs {
		jobs[i].ID = prefix + "-" + uuid.NewString()
	}
}
