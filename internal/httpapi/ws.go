package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ankushdebnath-github/chatbot/internal/chat"
	"github.com/ankushdebnath-github/chatbot/internal/store"
)

type wsClientMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wsTurnEvent struct {
	Type     string          `json:"type"`
	Outcome  chat.Outcome    `json:"outcome"`
	Reply    string          `json:"reply"`
	Messages []store.Message `json:"messages,omitempty"`
}

type wsErrorEvent struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// handleConversationWS streams turns over a websocket. Chat is strictly
// turn-by-turn, so reads and writes share one loop; there is never more
// than one in-flight turn per connection.
func (s *Server) handleConversationWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.engine.Transcript(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		if msg.Type != "user_message" {
			s.writeWS(conn, wsErrorEvent{
				Type:   "error",
				Code:   "invalid_client_message",
				Detail: "expected type user_message",
			})
			continue
		}

		res, err := s.engine.HandleTurn(r.Context(), id, msg.Text)
		if err != nil {
			s.writeWS(conn, wsErrorEvent{Type: "error", Code: "turn_error", Detail: err.Error()})
			continue
		}
		s.writeWS(conn, wsTurnEvent{
			Type:     "turn",
			Outcome:  res.Outcome,
			Reply:    res.Reply,
			Messages: res.Messages,
		})
	}
}

func (s *Server) writeWS(conn *websocket.Conn, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(v)
}
