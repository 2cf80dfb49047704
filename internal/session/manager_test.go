package session

import (
	"testing"
	"time"

	"github.com/ankushdebnath-github/chatbot/internal/store"
)

func TestStartNewBindsUniqueIDs(t *testing.T) {
	m := NewManager(2 * time.Second)
	a := m.StartNew()
	b := m.StartNew()
	if a.ConversationID == "" || b.ConversationID == "" {
		t.Fatalf("conversation ids should not be empty")
	}
	if a.ConversationID == b.ConversationID {
		t.Fatalf("two new sessions share id %q", a.ConversationID)
	}
	if a.State != StateActive {
		t.Fatalf("state = %q, want %q", a.State, StateActive)
	}
	if len(a.History) != 0 {
		t.Fatalf("new session history not empty: %+v", a.History)
	}
}

func TestResumeReplacesLiveSession(t *testing.T) {
	m := NewManager(2 * time.Second)
	conv := store.Conversation{
		ID: "conv_x",
		History: []store.Message{
			{Role: store.RoleUser, Text: "how do I grow revenue"},
			{Role: store.RoleAssistant, Text: "raise prices or volume"},
		},
	}
	s := m.Resume(conv, true)
	if s.ConversationID != "conv_x" || !s.BusinessRelated {
		t.Fatalf("unexpected resumed session: %+v", s)
	}
	got, err := m.Get("conv_x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
}

func TestBeginTurnCooldown(t *testing.T) {
	m := NewManager(2 * time.Second)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	m.SetClock(func() time.Time { return now })

	s := m.StartNew()

	ok, err := m.BeginTurn(s.ConversationID)
	if err != nil || !ok {
		t.Fatalf("first BeginTurn() = %v, %v; want accepted", ok, err)
	}

	now = base.Add(500 * time.Millisecond)
	ok, err = m.BeginTurn(s.ConversationID)
	if err != nil {
		t.Fatalf("second BeginTurn() error = %v", err)
	}
	if ok {
		t.Fatalf("turn 500ms after previous accepted despite 2s cooldown")
	}

	// A rejected turn must not reset the limiter clock.
	now = base.Add(2100 * time.Millisecond)
	ok, _ = m.BeginTurn(s.ConversationID)
	if !ok {
		t.Fatalf("turn after cooldown elapsed was rejected")
	}
}

func TestAppendAndDrop(t *testing.T) {
	m := NewManager(0)
	s := m.StartNew()

	hist, err := m.Append(s.ConversationID,
		store.Message{Role: store.RoleUser, Text: "marketing"},
		store.Message{Role: store.RoleAssistant, Text: "sure"},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}

	m.Drop(s.ConversationID)
	if _, err := m.Get(s.ConversationID); err != ErrNotFound {
		t.Fatalf("Get() after Drop error = %v, want ErrNotFound", err)
	}
	// Dropping again is harmless.
	m.Drop(s.ConversationID)
}

func TestGetUnknownSession(t *testing.T) {
	m := NewManager(0)
	if _, err := m.Get("conv_missing"); err != ErrNotFound {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := m.BeginTurn("conv_missing"); err != ErrNotFound {
		t.Fatalf("BeginTurn(unknown) error = %v, want ErrNotFound", err)
	}
}
