package memory

import (
	"context"
	"errors"
	"strings"
)

// ErrStorage marks failures of the underlying storage backend.
var ErrStorage = errors.New("memory storage unavailable")

// Record is one immutable entry of a user's conversational log. Prompts and
// replies are stored the same way and cannot be told apart when read back.
type Record struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Store is an append-only, per-user text log.
type Store interface {
	// Append adds text to the user's log.
	Append(ctx context.Context, userID, text string) error
	// ReadAll returns every text of the user, oldest first, joined by "\n".
	// A user without records yields "" and no error.
	ReadAll(ctx context.Context, userID string) (string, error)
	Close() error
}

func joinTexts(texts []string) string {
	return strings.Join(texts, "\n")
}
