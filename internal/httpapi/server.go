package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ankushdebnath-github/chatbot/internal/calc"
	"github.com/ankushdebnath-github/chatbot/internal/chat"
	"github.com/ankushdebnath-github/chatbot/internal/config"
	"github.com/ankushdebnath-github/chatbot/internal/observability"
	"github.com/ankushdebnath-github/chatbot/internal/store"
)

type Server struct {
	cfg      config.Config
	engine   *chat.Engine
	store    store.Store
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine *chat.Engine, st store.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		store:   st,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another site cannot drive the chat session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/conversations", s.handleCreateConversation)
	r.Get("/v1/conversations", s.handleListConversations)
	r.Get("/v1/conversations/{id}", s.handleGetConversation)
	r.Delete("/v1/conversations/{id}", s.handleDeleteConversation)
	r.Post("/v1/conversations/{id}/messages", s.handlePostMessage)
	r.Get("/v1/conversations/{id}/ws", s.handleConversationWS)
	r.Post("/v1/calc", s.handleCalc)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.engine.StartConversation()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

type conversationSummary struct {
	ID        string `json:"conversation_id"`
	Timestamp string `json:"timestamp"`
	Turns     int    `json:"turns"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.LoadAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	summaries := make([]conversationSummary, 0, len(all))
	for id, conv := range all {
		summaries = append(summaries, conversationSummary{
			ID:        id,
			Timestamp: conv.Timestamp,
			Turns:     len(conv.History),
		})
	}
	// Most recently saved first; the timestamp layout sorts lexically.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Timestamp != summaries[j].Timestamp {
			return summaries[i].Timestamp > summaries[j].Timestamp
		}
		return summaries[i].ID < summaries[j].ID
	})
	respondJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.engine.Transcript(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"timestamp":       conv.Timestamp,
		"history":         conv.History,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.DeleteConversation(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "text is required")
		return
	}

	res, err := s.engine.HandleTurn(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "turn_error", err.Error())
		return
	}
	status := http.StatusOK
	if res.Outcome == chat.OutcomeRateLimited {
		status = http.StatusTooManyRequests
	}
	respondJSON(w, status, res)
}

type calcRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := calc.Evaluate(req.Expression)
	if err != nil {
		code := "invalid_expression"
		if errors.Is(err, calc.ErrDivisionByZero) {
			code = "division_by_zero"
		}
		respondError(w, http.StatusUnprocessableEntity, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

var errEmptyBody = errors.New("empty body")

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
