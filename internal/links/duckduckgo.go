package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoDefaultBaseURL = "https://html.duckduckgo.com"

// DuckDuckGoProvider scrapes the keyless HTML results page.
type DuckDuckGoProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		baseURL:   duckDuckGoDefaultBaseURL,
		userAgent: "Mozilla/5.0 (compatible; levo/1.0)",
		client:    &http.Client{},
	}
}

// WithBaseURL points the provider at another host, mainly for tests.
func (p *DuckDuckGoProvider) WithBaseURL(base string) *DuckDuckGoProvider {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/html/?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("duckduckgo status %d: %s", res.StatusCode, string(body))
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var out []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		target := unwrapDuckDuckGoLink(href)
		if target == "" {
			return true
		}
		out = append(out, Result{Title: strings.TrimSpace(s.Text()), URL: target})
		return len(out) < limit
	})
	return out, nil
}

// unwrapDuckDuckGoLink resolves /l/?uddg= redirect links and drops ad links.
func unwrapDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") || u.Host == "" {
		if strings.HasPrefix(u.Path, "/y.js") {
			return ""
		}
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		if u.Host == "" {
			return ""
		}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String()
}
