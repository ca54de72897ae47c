package links

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const googleDefaultBaseURL = "https://www.googleapis.com"

// GoogleProvider queries the Custom Search JSON API.
type GoogleProvider struct {
	baseURL string
	apiKey  string
	cx      string
	client  *http.Client
}

func NewGoogleProvider(apiKey, cx string) *GoogleProvider {
	return &GoogleProvider{
		baseURL: googleDefaultBaseURL,
		apiKey:  apiKey,
		cx:      cx,
		client:  &http.Client{},
	}
}

// WithBaseURL points the provider at another host, mainly for tests.
func (p *GoogleProvider) WithBaseURL(base string) *GoogleProvider {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	// The API caps num at 10.
	num := limit
	if num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/customsearch/v1?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("google search status %d: %s", res.StatusCode, string(body))
	}

	var payload struct {
		Items []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.Link == "" {
			continue
		}
		out = append(out, Result{Title: item.Title, URL: item.Link})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
