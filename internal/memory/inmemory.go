package memory

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process memory store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = append(s.records[userID], Record{UserID: userID, Text: text})
	return nil
}

func (s *InMemoryStore) ReadAll(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[userID]
	if len(arr) == 0 {
		return "", nil
	}
	texts := make([]string, 0, len(arr))
	for _, r := range arr {
		texts = append(texts, r.Text)
	}
	return joinTexts(texts), nil
}

func (s *InMemoryStore) Close() error { return nil }
