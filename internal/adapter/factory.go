package adapter

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dchernopolskiy/Flare-sub001/internal/model"
)

// ForURL builds the fetcher for a recognized ATS board URL. The company name
// defaults to the board slug when the caller has nothing better.
func ForURL(source model.Source, rawURL, companyName string, client *http.Client) (model.JobFetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidURL, rawURL)
	}

	switch source {
	case model.SourceGreenhouse:
		token := boardSlug(u)
		if token == "" {
			return nil, fmt.Errorf("%w: no greenhouse board token in %q", model.ErrInvalidURL, rawURL)
		}
		return NewGreenhouseAdapter(token, orSlug(companyName, token), client), nil

	case model.SourceLever:
		slug := firstPathSegment(u)
		if slug == "" {
			return nil, fmt.Errorf("%w: no lever company slug in %q", model.ErrInvalidURL, rawURL)
		}
		return NewLeverAdapter(slug, orSlug(companyName, slug), client), nil

	case model.SourceAshby:
		slug := firstPathSegment(u)
		if slug == "" {
			return nil, fmt.Errorf("%w: no ashby board token in %q", model.ErrInvalidURL, rawURL)
		}
		return NewAshbyAdapter(slug, orSlug(companyName, slug), client), nil

	case model.SourceWorkday:
		cxs, err := workdayCXSURL(u)
		if err != nil {
			return nil, err
		}
		return NewWorkdayAdapter(cxs, orSlug(companyName, tenantOf(u)), client), nil

	default:
		return nil, &model.NotImplementedError{Source: source}
	}
}

// boardSlug handles both boards.greenhouse.io/{token} and the embed form
// greenhouse.io/embed/job_board?for={token}.
func boardSlug(u *url.URL) string {
	if token := u.Query().Get("for"); token != "" {
		return token
	}
	return firstPathSegment(u)
}

func firstPathSegment(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0]
}

// workdayCXSURL converts a public Workday career-site URL like
// https://acme.wd1.myworkdayjobs.com/en-US/External into the cxs API base
// https://acme.wd1.myworkdayjobs.com/wday/cxs/acme/External.
func workdayCXSURL(u *url.URL) (string, error) {
	tenant := tenantOf(u)
	if tenant == "" {
		return "", fmt.Errorf("%w: no workday tenant in host %q", model.ErrInvalidURL, u.Host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	site := ""
	for _, p := range parts {
		// Skip the locale segment ("en-US" etc.); the site name follows it.
		if len(p) == 5 && p[2] == '-' {
			continue
		}
		if p != "" {
			site = p
			break
		}
	}
	if site == "" {
		return "", fmt.Errorf("%w: no workday site in path %q", model.ErrInvalidURL, u.Path)
	}

	return fmt.Sprintf("%s://%s/wday/cxs/%s/%s", u.Scheme, u.Host, tenant, site), nil
}

func tenantOf(u *url.URL) string {
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) < 3 {
		return ""
	}
	return labels[0]
}

func orSlug(name, slug string) string {
	if name != "" {
		return name
	}
	return slug
}
