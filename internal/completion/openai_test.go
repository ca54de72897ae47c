package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/levo/internal/reliability"
)

type capturedRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *OpenAIGateway {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewOpenAIGateway(Config{
		BaseURL:       ts.URL + "/v1",
		APIKey:        "test-key",
		Model:         "llama-3.1-8b-instant",
		Temperature:   0.7,
		Timeout:       2 * time.Second,
		StreamTimeout: 2 * time.Second,
	})
}

func writeCompletion(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": text},
		}},
	})
}

func TestOpenAIGatewayComplete(t *testing.T) {
	var got capturedRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "yo! what's good?")
	})

	reply, err := g.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "yo! what's good?", reply)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.False(t, got.Stream)
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}}, got.Messages)
}

func TestOpenAIGatewayCompleteClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		want   reliability.ErrorKind
	}{
		{http.StatusUnauthorized, reliability.KindAuth},
		{http.StatusTooManyRequests, reliability.KindQuota},
		{http.StatusInternalServerError, reliability.KindUpstream},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			})

			_, err := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
			var gwErr *GatewayError
			require.True(t, errors.As(err, &gwErr), "err = %v", err)
			assert.Equal(t, tc.want, gwErr.Kind)
			assert.Equal(t, tc.status, gwErr.Status)
		})
	}
}

func TestOpenAIGatewayCompleteMalformedAndEmpty(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": "definitely not a list"}`))
	})
	_, err := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "err = %v", err)
	assert.Equal(t, reliability.KindMalformed, gwErr.Kind)

	g = newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})
	_, err = g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, reliability.KindMalformed, gwErr.Kind)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAIGatewayCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	g := NewOpenAIGateway(Config{BaseURL: ts.URL + "/v1", APIKey: "k", Model: "m", Timeout: 50 * time.Millisecond})
	_, err := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "err = %v", err)
	assert.Equal(t, reliability.KindTimeout, gwErr.Kind)
}

func writeSSE(t *testing.T, w http.ResponseWriter, deltas ...string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, d := range deltas {
		payload, err := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion.chunk",
			"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": d}}},
		})
		require.NoError(t, err)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestOpenAIGatewayStream(t *testing.T) {
	var got capturedRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeSSE(t, w, "Hel", "", "lo")
	})

	ch, err := g.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var chunks []Chunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	assert.True(t, got.Stream)
	assert.Equal(t, []Chunk{{Delta: "Hel"}, {Delta: "lo"}, {Done: true}}, chunks)
}

func TestOpenAIGatewayStreamStartFailure(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := g.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr), "err = %v", err)
	assert.Equal(t, reliability.KindAuth, gwErr.Kind)
}

func TestOpenAIGatewayStreamCancelReleasesUpstream(t *testing.T) {
	upstreamDone := make(chan struct{})
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		defer close(upstreamDone)
		writeSSEOpen(w, "first")
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := g.Stream(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "first", first.Delta)
	cancel()

	select {
	case <-upstreamDone:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not released after cancel")
	}
	for range ch {
	}
}

func writeSSEOpen(w http.ResponseWriter, delta string) {
	w.Header().Set("Content-Type", "text/event-stream")
	_, _ = fmt.Fprintf(w, "data: {\"id\":\"c\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestNewSelectsMode(t *testing.T) {
	g, err := New(Config{Mode: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "mock", ModeOf(g))

	g, err = New(Config{Mode: "auto", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", ModeOf(g))

	_, err = New(Config{Mode: "openai"})
	assert.Error(t, err)

	_, err = New(Config{Mode: "telepathy"})
	assert.Error(t, err)
}
