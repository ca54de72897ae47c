package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/levo/internal/config"
	"github.com/ent0n29/levo/internal/conversation"
	"github.com/ent0n29/levo/internal/links"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		BaseURL:            "http://localhost:8080",
		MetricsNamespace:   "levo_app_test",
		RateLimitPerMinute: 15,
		SystemPrompt:       config.DefaultSystemPrompt,
		DefaultUserID:      "guest",
		LLMMode:            "mock",
		LLMModel:           "llama-3.1-8b-instant",
		ProviderTimeout:    time.Second,
		StreamTimeout:      time.Second,
		SearchProvider:     "none",
		SearchTimeout:      time.Second,
		SearchLimit:        5,
		DatabaseURL:        "memory://",
		FilesDir:           t.TempDir(),
	}
}

func TestBuildWiresMockStack(t *testing.T) {
	res, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, res.Cleanup()) })

	assert.Equal(t, "mock", res.LLMMode)
	assert.Equal(t, "none", res.Search)

	reply, err := res.Chat.Chat(context.Background(), conversation.Request{UserID: "u1", Prompt: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "I heard you: ping", reply.Text)

	blob, err := res.Store.ReadAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ping\nI heard you: ping", blob)

	ts := httptest.NewServer(res.API.Router())
	defer ts.Close()
	hr, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer hr.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(hr.Body).Decode(&health))
	assert.Equal(t, "mock", health["llm_mode"])
}

func TestBuildRejectsBadBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "mongodb://nope"
	_, err := Build(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.LLMMode = "openai"
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestResolveSearchProvider(t *testing.T) {
	cfg := testConfig(t)

	for _, tc := range []struct {
		provider string
		want     string
	}{
		{"", "duckduckgo"},
		{"duckduckgo", "duckduckgo"},
		{"none", "none"},
	} {
		cfg.SearchProvider = tc.provider
		p, err := resolveSearchProvider(cfg)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.Name())
	}

	cfg.SearchProvider = "google"
	_, err := resolveSearchProvider(cfg)
	assert.Error(t, err)

	cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX = "k", "cx"
	p, err := resolveSearchProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &links.GoogleProvider{}, p)

	cfg.SearchProvider = "bing"
	_, err = resolveSearchProvider(cfg)
	assert.Error(t, err)
}

func TestResolveMediaClientsWithoutKeys(t *testing.T) {
	vision, images := resolveMediaClients(testConfig(t))
	_, err := vision.Describe(context.Background(), []byte("\x89PNG\r\n\x1a\n"), "image/png", "")
	assert.Error(t, err)
	_, err = images.Generate(context.Background(), "cat")
	assert.Error(t, err)
}
