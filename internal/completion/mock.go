package completion

import (
	"context"
	"fmt"
	"strings"
)

// MockGateway provides deterministic local replies when no provider key is
// configured.
type MockGateway struct{}

func NewMockGateway() *MockGateway { return &MockGateway{} }

func (g *MockGateway) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return buildMockReply(messages), nil
}

func (g *MockGateway) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.SplitAfter(buildMockReply(messages), " ")
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for _, w := range words {
			select {
			case out <- Chunk{Delta: w}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- Chunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func buildMockReply(messages []Message) string {
	base := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			base = strings.TrimSpace(messages[i].Content)
			break
		}
	}
	if base == "" {
		base = "nothing yet"
	}
	return fmt.Sprintf("I heard you: %s", base)
}
