package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// TimeLayout is the timestamp format used in persisted conversations.
const TimeLayout = "2006-01-02 15:04:05"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrNotFound = errors.New("conversation not found")

// Message is a single conversational turn. On the wire it is a two-element
// [role, text] array so that existing conversation files load unchanged.
type Message struct {
	Role string
	Text string
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{m.Role, m.Text})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("message must be a [role, text] pair: %w", err)
	}
	m.Role, m.Text = pair[0], pair[1]
	return nil
}

// Conversation is a persisted transcript. Timestamp is the last-saved
// wall-clock time, rewritten on every save.
type Conversation struct {
	ID        string    `json:"-"`
	Timestamp string    `json:"timestamp"`
	History   []Message `json:"history"`
}

// Store persists and retrieves conversation transcripts.
type Store interface {
	LoadAll(ctx context.Context) (map[string]Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	Save(ctx context.Context, id string, history []Message) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// cloneHistory always returns a non-nil slice so an empty transcript
// serializes as [] rather than null.
func cloneHistory(history []Message) []Message {
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
