package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/reliability"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func newFakeProvider(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts.URL + "/v1"
}

func TestVisionDescribeSendsDataURL(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	base := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"a tiny square"}}]}`))
	})

	v := NewVision(completion.NewOpenAIClient(base, "k"), "llama-3.2-11b-vision-preview", time.Second)
	got, err := v.Describe(context.Background(), tinyPNG, "", "")
	require.NoError(t, err)
	assert.Equal(t, "a tiny square", got)

	assert.Equal(t, "llama-3.2-11b-vision-preview", body.Model)
	require.Len(t, body.Messages, 1)
	parts := body.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, DefaultVisionPrompt, parts[0].Text)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"), parts[1].ImageURL.URL)
}

func TestVisionRejectsBadInput(t *testing.T) {
	v := NewVision(completion.NewOpenAIClient("http://127.0.0.1:1/v1", "k"), "m", time.Second)

	_, err := v.Describe(context.Background(), nil, "image/png", "")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = v.Describe(context.Background(), []byte("plain text, not a picture"), "text/plain", "")
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = NewVision(nil, "m", time.Second).Describe(context.Background(), tinyPNG, "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVisionClassifiesProviderError(t *testing.T) {
	base := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})
	v := NewVision(completion.NewOpenAIClient(base, "k"), "m", time.Second)

	_, err := v.Describe(context.Background(), tinyPNG, "image/png", "what is it")
	var gwErr *completion.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, reliability.KindAuth, gwErr.Kind)
}

func TestImageGeneratorReturnsURL(t *testing.T) {
	var body map[string]any
	base := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example.com/cat.png"}]}`))
	})

	g := NewImageGenerator(completion.NewOpenAIClient(base, "k"), "", "", time.Second)
	got, err := g.Generate(context.Background(), "a cat wearing sunglasses")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/cat.png", got)
	assert.Equal(t, "dall-e-3", body["model"])
	assert.Equal(t, "a cat wearing sunglasses", body["prompt"])
}

func TestImageGeneratorErrors(t *testing.T) {
	_, err := NewImageGenerator(nil, "", "", 0).Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	base := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	})
	g := NewImageGenerator(completion.NewOpenAIClient(base, "k"), "", "", time.Second)

	_, err = g.Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = g.Generate(context.Background(), "a dog")
	var gwErr *completion.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, reliability.KindMalformed, gwErr.Kind)
}
