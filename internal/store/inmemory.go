package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a simple in-process conversation store for local/dev use.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	now           func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]Conversation),
		now:           time.Now,
	}
}

func (s *InMemoryStore) LoadAll(_ context.Context) (map[string]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Conversation, len(s.conversations))
	for id, conv := range s.conversations {
		conv.History = cloneHistory(conv.History)
		out[id] = conv
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	conv.History = cloneHistory(conv.History)
	return conv, nil
}

func (s *InMemoryStore) Save(_ context.Context, id string, history []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[id] = Conversation{
		ID:        id,
		Timestamp: s.now().Format(TimeLayout),
		History:   cloneHistory(history),
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
