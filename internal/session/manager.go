package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ankushdebnath-github/chatbot/internal/store"
)

type State string

const (
	// StateNew is a session with no conversation bound yet.
	StateNew State = "new"
	// StateActive has a conversation id bound and a live transcript.
	StateActive State = "active"
)

var ErrNotFound = errors.New("session not found")

// Session is the ephemeral per-conversation working state. The persisted
// store remains the source of truth; this is the copy a turn mutates.
type Session struct {
	ConversationID  string          `json:"conversation_id"`
	State           State           `json:"state"`
	History         []store.Message `json:"history"`
	BusinessRelated bool            `json:"business_related"`
	LastRequestAt   time.Time       `json:"last_request_at"`
	StartedAt       time.Time       `json:"started_at"`
}

// Manager tracks live sessions keyed by conversation id and enforces the
// per-session cooldown between accepted turns.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cooldown time.Duration
	now      func() time.Time
}

func NewManager(cooldown time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SetClock replaces the manager's time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// StartNew binds a fresh conversation id and returns the new active session.
// Ids are uuid-based: the legacy whole-second scheme collides when two
// conversations start within the same second.
func (m *Manager) StartNew() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{
		ConversationID: "conv_" + uuid.NewString(),
		State:          StateActive,
		StartedAt:      m.now(),
	}
	m.sessions[s.ConversationID] = s
	return clone(s)
}

// Resume binds an existing conversation, replacing any live session for the
// same id. The business flag is recomputed by the caller from the stored
// history, not persisted.
func (m *Manager) Resume(conv store.Conversation, businessRelated bool) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{
		ConversationID:  conv.ID,
		State:           StateActive,
		History:         append([]store.Message(nil), conv.History...),
		BusinessRelated: businessRelated,
		StartedAt:       m.now(),
	}
	m.sessions[s.ConversationID] = s
	return clone(s)
}

func (m *Manager) Get(conversationID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// BeginTurn applies the cooldown gate. An accepted turn stamps the request
// time; a rejected one leaves all session state untouched.
func (m *Manager) BeginTurn(conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return false, ErrNotFound
	}
	now := m.now()
	if !s.LastRequestAt.IsZero() && now.Sub(s.LastRequestAt) < m.cooldown {
		return false, nil
	}
	s.LastRequestAt = now
	return true, nil
}

// Append adds turns to the session history and returns the full updated
// transcript.
func (m *Manager) Append(conversationID string, msgs ...store.Message) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	s.History = append(s.History, msgs...)
	return append([]store.Message(nil), s.History...), nil
}

func (m *Manager) SetBusinessRelated(conversationID string, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return ErrNotFound
	}
	s.BusinessRelated = v
	return nil
}

// Drop discards the live session, transitioning the caller back to NEW.
// Dropping an unknown id is a no-op.
func (m *Manager) Drop(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conversationID)
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func clone(s *Session) *Session {
	c := *s
	c.History = append([]store.Message(nil), s.History...)
	return &c
}
