package detect

import (
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// schemaOrgJobs extracts schema.org JobPosting entries from the ld+json
// script blocks of a page. Bare objects, arrays, @graph containers and
// ItemLists are all accepted; a posting is valid when it carries a title.
func schemaOrgJobs(body string, base *url.URL) []model.Job {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var jobs []model.Job
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var node any
		if err := json.Unmarshal([]byte(sel.Text()), &node); err != nil {
			return
		}
		collectPostings(node, base, &jobs)
	})
	return jobs
}

// collectPostings walks a decoded ld+json value, descending into arrays,
// @graph blocks and ItemList elements.
func collectPostings(node any, base *url.URL, out *[]model.Job) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectPostings(item, base, out)
		}
	case map[string]any:
		if isType(v, "JobPosting") {
			if job, ok := jobFromSchema(v, base); ok {
				*out = append(*out, job)
			}
			return
		}
		if graph, ok := v["@graph"]; ok {
			collectPostings(graph, base, out)
		}
		if isType(v, "ItemList") {
			if elems, ok := v["itemListElement"].([]any); ok {
				for _, e := range elems {
					if m, ok := e.(map[string]any); ok {
						if item, ok := m["item"]; ok {
							collectPostings(item, base, out)
						} else {
							collectPostings(m, base, out)
						}
					}
				}
			}
		}
	}
}

// isType checks the @type field, which may be a string or a list.
func isType(m map[string]any, want string) bool {
	switch t := m["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

var schemaTagRegex = regexp.MustCompile(`<[^>]*>`)

func jobFromSchema(m map[string]any, base *url.URL) (model.Job, bool) {
	title := str(m["title"])
	if title == "" {
		return model.Job{}, false
	}

	job := model.Job{
		ID:         "schema-" + uuid.NewString(),
		Title:      title,
		Source:     model.SourceUnknown,
		Company:    orgName(m["hiringOrganization"]),
		Department: str(m["occupationalCategory"]),
		Location:   schemaLocation(m["jobLocation"]),
	}

	desc := str(m["description"])
	if desc != "" {
		plain := schemaTagRegex.ReplaceAllString(html.UnescapeString(desc), "")
		job.Description = strings.Join(strings.Fields(plain), " ")
	}

	if u := str(m["url"]); u != "" {
		if ref, err := url.Parse(u); err == nil {
			job.URL = base.ResolveReference(ref).String()
		}
	}
	if job.URL == "" {
		job.URL = base.String()
	}

	if posted := parseSchemaDate(str(m["datePosted"])); posted != nil {
		job.PostedAt = posted
	}

	if strings.EqualFold(str(m["jobLocationType"]), "TELECOMMUTE") {
		job.WorkSite = "Remote"
	}

	return job, true
}

// parseSchemaDate accepts the date shapes seen in the wild: full RFC3339,
// date-only, and date with a seconds-less time.
func parseSchemaDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// orgName unwraps hiringOrganization, which may be a string or an
// Organization object.
func orgName(v any) string {
	switch org := v.(type) {
	case string:
		return org
	case map[string]any:
		return str(org["name"])
	}
	return ""
}

// schemaLocation flattens jobLocation (a Place, or a list of them) into a
// single ", "-joined string.
func schemaLocation(v any) string {
	var parts []string
	appendPlace := func(m map[string]any) {
		addr, _ := m["address"].(map[string]any)
		if addr == nil {
			if s := str(m["name"]); s != "" {
				parts = append(parts, s)
			}
			return
		}
		var fields []string
		for _, key := range []string{"addressLocality", "addressRegion", "addressCountry"} {
			if s := str(addr[key]); s != "" {
				fields = append(fields, s)
			}
		}
		if len(fields) > 0 {
			parts = append(parts, strings.Join(fields, ", "))
		}
	}

	switch loc := v.(type) {
	case map[string]any:
		appendPlace(loc)
	case []any:
		for _, item := range loc {
			if m, ok := item.(map[string]any); ok {
				appendPlace(m)
			}
		}
	}
	return strings.Join(parts, ", ")
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
