package links

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeProvider struct {
	results []Result
	err     error
	delay   time.Duration
	query   string
	limit   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	p.query = query
	p.limit = limit
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.results, p.err
}

func manyResults(n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Result{Title: fmt.Sprintf("result %d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	return out
}

func TestResolveTruncatesToLimitInProviderOrder(t *testing.T) {
	p := &fakeProvider{results: manyResults(8)}
	r := NewResolver(p, time.Second)

	got := r.Resolve(context.Background(), "laptop", "", 3)
	assert.Equal(t, manyResults(8)[:3], got)
	assert.Equal(t, 3, p.limit)
}

func TestResolveDefaultLimit(t *testing.T) {
	p := &fakeProvider{results: manyResults(9)}
	got := NewResolver(p, time.Second).Resolve(context.Background(), "laptop", "", 0)
	assert.Len(t, got, DefaultLimit)
}

func TestResolveAppendsSiteFilter(t *testing.T) {
	p := &fakeProvider{results: manyResults(1)}
	NewResolver(p, time.Second).Resolve(context.Background(), "  find me a laptop ", "amazon.com", 5)
	assert.Equal(t, "find me a laptop site:amazon.com", p.query)

	NewResolver(p, time.Second).Resolve(context.Background(), "cats", "", 5)
	assert.Equal(t, "cats", p.query)
}

func TestResolveSwallowsProviderFailures(t *testing.T) {
	var outcomes []string
	p := &fakeProvider{err: errors.New("boom")}
	r := NewResolver(p, time.Second).WithObserver(func(o string) { outcomes = append(outcomes, o) })

	assert.Empty(t, r.Resolve(context.Background(), "q", "", 5))
	assert.Equal(t, []string{"error"}, outcomes)
}

func TestResolveTimeoutReturnsEmpty(t *testing.T) {
	p := &fakeProvider{results: manyResults(3), delay: time.Second}
	r := NewResolver(p, 20*time.Millisecond)

	start := time.Now()
	assert.Empty(t, r.Resolve(context.Background(), "q", "", 5))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResolveNilSafe(t *testing.T) {
	var r *Resolver
	assert.Nil(t, r.Resolve(context.Background(), "q", "", 5))
	assert.Nil(t, NewResolver(NopProvider{}, 0).Resolve(context.Background(), "q", "", 5))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	got := Format([]Result{
		{Title: "Gaming Laptop", URL: "https://amazon.com/a"},
		{Title: "", URL: "https://amazon.com/b"},
	})
	assert.Equal(t, "- [Gaming Laptop](https://amazon.com/a)\n- [https://amazon.com/b](https://amazon.com/b)", got)
}

func TestRulesMatchFirstDeclaredWins(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		prompt string
		want   string
		ok     bool
	}{
		{"find me a laptop on amazon", "amazon", true},
		{"Show me a YouTube tutorial", "youtube", true},
		{"any good video on amazon or youtube?", "amazon", true},
		{"I want to BUY shoes", "amazon", true},
		{"hi", "", false},
	}
	for _, tc := range cases {
		rule, ok := rules.Match(tc.prompt)
		assert.Equal(t, tc.ok, ok, tc.prompt)
		assert.Equal(t, tc.want, rule.Name, tc.prompt)
	}
}

func TestRulesMatchRespectsCustomOrder(t *testing.T) {
	rules := Rules{
		{Name: "youtube", Keywords: []string{"youtube"}, Site: "youtube.com"},
		{Name: "amazon", Keywords: []string{"amazon"}, Site: "amazon.com"},
	}
	rule, ok := rules.Match("amazon and youtube")
	assert.True(t, ok)
	assert.Equal(t, "youtube.com", rule.Site)
}
