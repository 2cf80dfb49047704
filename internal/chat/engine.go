package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ankushdebnath-github/chatbot/internal/classifier"
	"github.com/ankushdebnath-github/chatbot/internal/model"
	"github.com/ankushdebnath-github/chatbot/internal/observability"
	"github.com/ankushdebnath-github/chatbot/internal/session"
	"github.com/ankushdebnath-github/chatbot/internal/store"
)

// Outcome labels what happened to a turn.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeRefused     Outcome = "refused"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeModelError  Outcome = "model_error"
)

const (
	WelcomeMessage  = "Welcome to the Business Proposal ChatBot! How can I assist you with your business queries today?"
	RefusalMessage  = "I'm here to help with business-related queries only. Ask me about startups, marketing, or investments!"
	CooldownMessage = "Please wait a moment before sending another request."
)

// TurnResult reports one handled turn. Messages holds what was appended to
// the transcript; a rate-limited turn appends nothing.
type TurnResult struct {
	Outcome  Outcome         `json:"outcome"`
	Reply    string          `json:"reply"`
	Messages []store.Message `json:"messages"`
}

// Engine orchestrates per-turn control flow: cooldown gate, spell
// correction, topic classification, model call or refusal, persistence.
type Engine struct {
	classifier  *classifier.Classifier
	store       store.Store
	sessions    *session.Manager
	client      model.Client
	metrics     *observability.Metrics
	callTimeout time.Duration
	historyMax  int
}

func NewEngine(
	cls *classifier.Classifier,
	st store.Store,
	sessions *session.Manager,
	client model.Client,
	metrics *observability.Metrics,
	callTimeout time.Duration,
	historyMax int,
) *Engine {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Engine{
		classifier:  cls,
		store:       st,
		sessions:    sessions,
		client:      client,
		metrics:     metrics,
		callTimeout: callTimeout,
		historyMax:  historyMax,
	}
}

// StartConversation opens a fresh conversation seeded with the welcome
// message. The store entry appears on the first saved turn, not here.
func (e *Engine) StartConversation() (*session.Session, error) {
	s := e.sessions.StartNew()
	if _, err := e.sessions.Append(s.ConversationID, store.Message{
		Role: store.RoleAssistant,
		Text: WelcomeMessage,
	}); err != nil {
		return nil, err
	}
	e.metrics.ActiveConversations.Set(float64(e.sessions.ActiveCount()))
	return e.sessions.Get(s.ConversationID)
}

// ResumeConversation reloads a stored conversation into a live session. The
// business flag is recomputed by re-scanning every prior user message: one
// business-flagged turn anywhere makes the whole reload warm.
func (e *Engine) ResumeConversation(ctx context.Context, id string) (*session.Session, error) {
	conv, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	warm := false
	for _, m := range conv.History {
		if m.Role == store.RoleUser && e.classifier.IsBusinessRelated(m.Text) {
			warm = true
			break
		}
	}
	s := e.sessions.Resume(conv, warm)
	e.metrics.ActiveConversations.Set(float64(e.sessions.ActiveCount()))
	return s, nil
}

// DeleteConversation removes the stored transcript and drops any live
// session, returning the caller to the NEW state.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	if err := e.store.Delete(ctx, id); err != nil {
		e.metrics.StoreErrors.WithLabelValues("delete").Inc()
		return err
	}
	e.sessions.Drop(id)
	e.metrics.ActiveConversations.Set(float64(e.sessions.ActiveCount()))
	return nil
}

// Transcript returns the live session history when one exists, falling back
// to the persisted conversation.
func (e *Engine) Transcript(ctx context.Context, id string) (store.Conversation, error) {
	if s, err := e.sessions.Get(id); err == nil {
		return store.Conversation{
			ID:        id,
			Timestamp: s.StartedAt.Format(store.TimeLayout),
			History:   s.History,
		}, nil
	}
	return e.store.Get(ctx, id)
}

// HandleTurn runs one user turn against the conversation. The session is
// resumed from the store when not already live; an unknown id returns
// store.ErrNotFound.
func (e *Engine) HandleTurn(ctx context.Context, conversationID, text string) (TurnResult, error) {
	if _, err := e.sessions.Get(conversationID); err != nil {
		if _, err := e.ResumeConversation(ctx, conversationID); err != nil {
			return TurnResult{}, err
		}
	}

	accepted, err := e.sessions.BeginTurn(conversationID)
	if err != nil {
		return TurnResult{}, err
	}
	if !accepted {
		e.metrics.Turns.WithLabelValues(string(OutcomeRateLimited)).Inc()
		return TurnResult{Outcome: OutcomeRateLimited, Reply: CooldownMessage}, nil
	}

	s, err := e.sessions.Get(conversationID)
	if err != nil {
		return TurnResult{}, err
	}

	prompt := text
	if e.classifier.Config().ApplySpellCorrection {
		prompt = e.classifier.Correct(text)
	}
	_, score := e.classifier.Match(prompt)
	e.metrics.ClassifierScore.Observe(float64(score))

	var (
		outcome Outcome
		reply   string
	)
	if e.classifier.IsPartOfConversation(prompt, s.BusinessRelated) {
		reply, err = e.generate(ctx, prompt, s.History)
		if err != nil {
			// Absorb the failure into the transcript; the session lives on.
			outcome = OutcomeModelError
			reply = fmt.Sprintf("⚠️ Error: %v", err)
		} else {
			outcome = OutcomeAnswered
			if err := e.sessions.SetBusinessRelated(conversationID, true); err != nil {
				return TurnResult{}, err
			}
		}
	} else {
		outcome = OutcomeRefused
		reply = RefusalMessage
		// The flag only drops when the input itself hit an exclusion.
		if e.classifier.MatchesExclusion(text) {
			if err := e.sessions.SetBusinessRelated(conversationID, false); err != nil {
				return TurnResult{}, err
			}
		}
	}

	appended := []store.Message{
		{Role: store.RoleUser, Text: text},
		{Role: store.RoleAssistant, Text: reply},
	}
	history, err := e.sessions.Append(conversationID, appended...)
	if err != nil {
		return TurnResult{}, err
	}

	if err := e.store.Save(ctx, conversationID, history); err != nil {
		// Persistence failure degrades to a warning; the turn already
		// happened and the transcript stays usable in memory.
		e.metrics.StoreErrors.WithLabelValues("save").Inc()
		log.Printf("save conversation %s: %v", conversationID, err)
	}

	e.metrics.Turns.WithLabelValues(string(outcome)).Inc()
	return TurnResult{Outcome: outcome, Reply: reply, Messages: appended}, nil
}

func (e *Engine) generate(ctx context.Context, prompt string, history []store.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	recent := history
	if e.historyMax > 0 && len(recent) > e.historyMax {
		recent = recent[len(recent)-e.historyMax:]
	}
	msgs := make([]model.Message, 0, len(recent))
	for _, m := range recent {
		msgs = append(msgs, model.Message{Role: m.Role, Content: m.Text})
	}

	reply, err := e.client.Generate(ctx, prompt, msgs)
	if err != nil {
		if !errors.Is(err, model.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrUnavailable, err)
		}
		return "", err
	}
	return reply, nil
}
