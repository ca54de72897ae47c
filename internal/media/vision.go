// Package media wraps the image endpoints of OpenAI-compatible providers:
// captioning an uploaded picture and generating one from a prompt.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/levo/internal/completion"
	"github.com/ent0n29/levo/internal/reliability"
)

// DefaultVisionPrompt is used when the caller asks nothing specific.
const DefaultVisionPrompt = "Describe this image in a few sentences."

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrNotImage      = errors.New("upload is not an image")
	ErrNotConfigured = errors.New("provider is not configured")
)

// Vision asks an image-capable chat model about a picture.
type Vision struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewVision returns a Vision client. A nil client makes every call fail
// with ErrNotConfigured.
func NewVision(client *openai.Client, model string, timeout time.Duration) *Vision {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Vision{client: client, model: model, timeout: timeout}
}

// Describe sends image inline as a data URL together with question.
func (v *Vision) Describe(ctx context.Context, image []byte, contentType, question string) (string, error) {
	if v == nil || v.client == nil {
		return "", ErrNotConfigured
	}
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	contentType = imageContentType(image, contentType)
	if contentType == "" {
		return "", ErrNotImage
	}
	if strings.TrimSpace(question) == "" {
		question = DefaultVisionPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: question},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(contentType, image),
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", completion.Classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &completion.GatewayError{Kind: reliability.KindMalformed, Err: completion.ErrEmptyReply}
	}
	return resp.Choices[0].Message.Content, nil
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// imageContentType trusts a declared image/* type, otherwise sniffs the
// bytes. It returns "" for anything that is not an image.
func imageContentType(data []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
