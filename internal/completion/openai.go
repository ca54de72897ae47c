package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/levo/internal/reliability"
)

// OpenAIGateway talks to any OpenAI-compatible chat completions API
// (Groq by default).
type OpenAIGateway struct {
	client        *openai.Client
	model         string
	temperature   float32
	timeout       time.Duration
	streamTimeout time.Duration
}

func NewOpenAIGateway(cfg Config) *OpenAIGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 2 * time.Minute
	}
	return &OpenAIGateway{
		client:        NewOpenAIClient(cfg.BaseURL, cfg.APIKey),
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		timeout:       cfg.Timeout,
		streamTimeout: cfg.StreamTimeout,
	}
}

// NewOpenAIClient builds a go-openai client for baseURL. Deadlines come
// from the caller's context, so the HTTP client itself has none.
func NewOpenAIClient(baseURL, apiKey string) *openai.Client {
	conf := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		conf.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	conf.HTTPClient = &http.Client{}
	return openai.NewClientWithConfig(conf)
}

func (g *OpenAIGateway) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    out,
		Temperature: g.temperature,
		Stream:      stream,
	}
}

func (g *OpenAIGateway) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, g.request(messages, false))
	if err != nil {
		return "", Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &GatewayError{Kind: reliability.KindMalformed, Err: ErrEmptyReply}
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	streamCtx, cancel := context.WithTimeout(ctx, g.streamTimeout)
	stream, err := g.client.CreateChatCompletionStream(streamCtx, g.request(messages, true))
	if err != nil {
		cancel()
		return nil, Classify(err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		send := func(c Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(Chunk{Done: true})
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				send(Chunk{Err: Classify(err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !send(Chunk{Delta: delta}) {
				return
			}
		}
	}()
	return out, nil
}

// Classify wraps a provider error into a GatewayError.
func Classify(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &GatewayError{Kind: reliability.ClassifyHTTPStatus(apiErr.HTTPStatusCode), Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &GatewayError{Kind: reliability.ClassifyHTTPStatus(reqErr.HTTPStatusCode), Status: reqErr.HTTPStatusCode, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Kind: reliability.KindTimeout, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &GatewayError{Kind: reliability.KindMalformed, Err: err}
	}
	return &GatewayError{Kind: reliability.KindUpstream, Err: err}
}
