package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/levo/internal/reliability"
)

// Role tags a message for the provider.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of the request sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chunk is one item of a streamed reply. A stream ends with exactly one
// chunk that has Done set or Err non-nil; the channel is closed after it.
type Chunk struct {
	Delta string
	Done  bool
	Err   error
}

// Gateway sends assembled messages to a language-model provider.
type Gateway interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	// Stream produces reply deltas. Cancelling ctx stops the producer and
	// releases the upstream connection.
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
}

// GatewayError is a provider call failure.
type GatewayError struct {
	Kind   reliability.ErrorKind
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("completion gateway %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("completion gateway %s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ErrEmptyReply is returned when the provider answers without any choice.
var ErrEmptyReply = errors.New("provider returned no choices")

// Config controls gateway construction.
type Config struct {
	Mode          string
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float32
	Timeout       time.Duration
	StreamTimeout time.Duration
}

func New(cfg Config) (Gateway, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIGateway(cfg), nil
		}
		return NewMockGateway(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("api key is required for openai mode")
		}
		return NewOpenAIGateway(cfg), nil
	case "mock":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unsupported completion mode %q", cfg.Mode)
	}
}

// ModeOf names the concrete gateway, for health output.
func ModeOf(g Gateway) string {
	switch g.(type) {
	case *OpenAIGateway:
		return "openai"
	case *MockGateway:
		return "mock"
	default:
		return "custom"
	}
}
