// Package news fetches headline links from NewsAPI.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/levo/internal/links"
	"github.com/ent0n29/levo/internal/logging"
)

const (
	DefaultBaseURL  = "https://newsapi.org/v2"
	DefaultTopic    = "technology"
	DefaultPageSize = 5
)

var errNoAPIKey = errors.New("news api key is not configured")

type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	timeout  time.Duration
	http     *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		pageSize: DefaultPageSize,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// Headlines returns up to DefaultPageSize articles about topic. Every
// failure, including a missing key, yields an empty list.
func (c *Client) Headlines(ctx context.Context, topic string) []links.Result {
	articles, err := c.fetch(ctx, topic)
	if err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Str("topic", topic).Msg("news lookup failed")
		return []links.Result{}
	}
	return articles
}

func (c *Client) fetch(ctx context.Context, topic string) ([]links.Result, error) {
	if c.apiKey == "" {
		return nil, errNoAPIKey
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", topic)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("newsapi status %d: %s", res.StatusCode, string(body))
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", payload.Status)
	}

	out := make([]links.Result, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.URL == "" {
			continue
		}
		out = append(out, links.Result{Title: a.Title, URL: a.URL})
		if len(out) == c.pageSize {
			break
		}
	}
	return out, nil
}
