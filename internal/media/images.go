package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/reliability"
)

var ErrEmptyPrompt = errors.New("prompt must not be empty")

// ImageGenerator creates pictures through the OpenAI images API.
type ImageGenerator struct {
	client  *openai.Client
	model   string
	size    string
	timeout time.Duration
}

// NewImageGenerator returns a generator. A nil client makes every call fail
// with ErrNotConfigured.
func NewImageGenerator(client *openai.Client, model, size string, timeout time.Duration) *ImageGenerator {
	if strings.TrimSpace(model) == "" {
		model = openai.CreateImageModelDallE3
	}
	if strings.TrimSpace(size) == "" {
		size = openai.CreateImageSize1024x1024
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ImageGenerator{client: client, model: model, size: size, timeout: timeout}
}

// Generate returns the URL of one image rendered from prompt.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		Size:           g.size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", completion.Classify(err)
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", &completion.GatewayError{Kind: reliability.KindMalformed, Err: errors.New("images API returned no url")}
	}
	return resp.Data[0].URL, nil
}
