package links

import (
	"context"
	"strings"
	"time"

	"github.com/ent0n29/levo/internal/logging"
)

// DefaultLimit is the number of results taken when none is requested.
const DefaultLimit = 5

// Result is one search hit.
type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Provider runs a query against an external search service.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Resolver wraps a Provider with the best-effort contract used by the chat
// pipeline: bounded time, bounded size, and failures reported as no results.
type Resolver struct {
	provider Provider
	timeout  time.Duration
	observe  func(outcome string)
}

func NewResolver(provider Provider, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{provider: provider, timeout: timeout}
}

// WithObserver registers a callback receiving "ok", "empty" or "error" per lookup.
func (r *Resolver) WithObserver(fn func(outcome string)) *Resolver {
	r.observe = fn
	return r
}

// Resolve searches query, restricted to site when non-empty, and returns at
// most limit results in provider order. It never fails.
func (r *Resolver) Resolve(ctx context.Context, query, site string, limit int) []Result {
	if r == nil || r.provider == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.TrimSpace(query)
	if site = strings.TrimSpace(site); site != "" {
		q += " site:" + site
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.provider.Search(ctx, q, limit)
	if err != nil {
		logging.FromCtx(ctx).Warn().Err(err).Str("provider", r.provider.Name()).Str("query", q).Msg("link lookup failed")
		r.report("error")
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		r.report("empty")
		return nil
	}
	r.report("ok")
	return results
}

func (r *Resolver) report(outcome string) {
	if r.observe != nil {
		r.observe(outcome)
	}
}

// Format renders results as a Markdown link list, one per line.
func Format(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := strings.TrimSpace(res.Title)
		if title == "" {
			title = res.URL
		}
		b.WriteString("- [")
		b.WriteString(title)
		b.WriteString("](")
		b.WriteString(res.URL)
		b.WriteString(")")
	}
	return b.String()
}

// NopProvider disables link enrichment.
type NopProvider struct{}

func (NopProvider) Name() string { return "none" }

func (NopProvider) Search(context.Context, string, int) ([]Result, error) { return nil, nil }
