package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ankushdebnath-github/chatbot/internal/chat"
	"github.com/ankushdebnath-github/chatbot/internal/classifier"
	"github.com/ankushdebnath-github/chatbot/internal/config"
	"github.com/ankushdebnath-github/chatbot/internal/model"
	"github.com/ankushdebnath-github/chatbot/internal/observability"
	"github.com/ankushdebnath-github/chatbot/internal/session"
	"github.com/ankushdebnath-github/chatbot/internal/store"
)

var metricsSeq atomic.Int64

func newTestServer(t *testing.T, client model.Client, cooldown time.Duration) *httptest.Server {
	t.Helper()
	cfg := config.Config{Cooldown: cooldown}
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))
	cls := classifier.New(classifier.DefaultConfig(), classifier.DefaultKeywords)
	st := store.NewInMemoryStore()
	sessions := session.NewManager(cooldown)
	engine := chat.NewEngine(cls, st, sessions, client, metrics, 5*time.Second, 10)

	ts := httptest.NewServer(New(cfg, engine, st, metrics).Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func createConversation(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	res := postJSON(t, ts.URL+"/v1/conversations", nil)
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created map[string]any
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id, _ := created["conversation_id"].(string)
	if id == "" {
		t.Fatalf("missing conversation_id in create response: %+v", created)
	}
	return id
}

func TestConversationLifecycle(t *testing.T) {
	ts := newTestServer(t, &model.MockClient{Reply: "Start with a lean budget."}, 0)
	id := createConversation(t, ts)

	msgRes := postJSON(t, ts.URL+"/v1/conversations/"+id+"/messages", map[string]string{
		"text": "marketing plan for a new startup",
	})
	defer msgRes.Body.Close()
	if msgRes.StatusCode != http.StatusOK {
		t.Fatalf("message status = %d, want %d", msgRes.StatusCode, http.StatusOK)
	}
	var turn chat.TurnResult
	if err := json.NewDecoder(msgRes.Body).Decode(&turn); err != nil {
		t.Fatalf("decode turn response: %v", err)
	}
	if turn.Outcome != chat.OutcomeAnswered {
		t.Fatalf("outcome = %q, want %q", turn.Outcome, chat.OutcomeAnswered)
	}

	getRes, err := http.Get(ts.URL + "/v1/conversations/" + id)
	if err != nil {
		t.Fatalf("get conversation error = %v", err)
	}
	defer getRes.Body.Close()
	var conv struct {
		History []store.Message `json:"history"`
	}
	if err := json.NewDecoder(getRes.Body).Decode(&conv); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(conv.History) != 3 {
		t.Fatalf("history length = %d, want 3 (welcome + turn)", len(conv.History))
	}

	listRes, err := http.Get(ts.URL + "/v1/conversations")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	defer listRes.Body.Close()
	var list struct {
		Conversations []struct {
			ID    string `json:"conversation_id"`
			Turns int    `json:"turns"`
		} `json:"conversations"`
	}
	if err := json.NewDecoder(listRes.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Conversations) != 1 || list.Conversations[0].ID != id {
		t.Fatalf("unexpected listing: %+v", list.Conversations)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/conversations/"+id, nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	delRes.Body.Close()
	if delRes.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", delRes.StatusCode, http.StatusNoContent)
	}

	missing, err := http.Get(ts.URL + "/v1/conversations/" + id)
	if err != nil {
		t.Fatalf("get after delete error = %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", missing.StatusCode)
	}
}

func TestPostMessageValidation(t *testing.T) {
	ts := newTestServer(t, model.NewMockClient(), 0)
	id := createConversation(t, ts)

	res := postJSON(t, ts.URL+"/v1/conversations/"+id+"/messages", map[string]string{"text": "   "})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank message status = %d, want 400", res.StatusCode)
	}

	res = postJSON(t, ts.URL+"/v1/conversations/conv_unknown/messages", map[string]string{"text": "marketing"})
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown conversation status = %d, want 404", res.StatusCode)
	}
}

func TestRateLimitedTurnReturns429(t *testing.T) {
	ts := newTestServer(t, &model.MockClient{Reply: "ok"}, time.Minute)
	id := createConversation(t, ts)

	first := postJSON(t, ts.URL+"/v1/conversations/"+id+"/messages", map[string]string{"text": "revenue model"})
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first turn status = %d, want 200", first.StatusCode)
	}

	second := postJSON(t, ts.URL+"/v1/conversations/"+id+"/messages", map[string]string{"text": "more revenue"})
	defer second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second turn status = %d, want 429", second.StatusCode)
	}
	var turn chat.TurnResult
	if err := json.NewDecoder(second.Body).Decode(&turn); err != nil {
		t.Fatalf("decode rate-limited turn: %v", err)
	}
	if turn.Outcome != chat.OutcomeRateLimited || len(turn.Messages) != 0 {
		t.Fatalf("unexpected rate-limited result: %+v", turn)
	}
}

func TestCalcEndpoint(t *testing.T) {
	ts := newTestServer(t, model.NewMockClient(), 0)

	res := postJSON(t, ts.URL+"/v1/calc", map[string]string{"expression": "(2 + 3) * 4"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("calc status = %d, want 200", res.StatusCode)
	}
	var out struct {
		Result float64 `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode calc response: %v", err)
	}
	if out.Result != 20 {
		t.Fatalf("calc result = %v, want 20", out.Result)
	}

	bad := postJSON(t, ts.URL+"/v1/calc", map[string]string{"expression": "1/0"})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("calc error status = %d, want 422", bad.StatusCode)
	}
	var errBody struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(bad.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode calc error: %v", err)
	}
	if errBody.Code != "division_by_zero" {
		t.Fatalf("calc error code = %q, want division_by_zero", errBody.Code)
	}
}

func TestConversationWebsocketTurn(t *testing.T) {
	ts := newTestServer(t, &model.MockClient{Reply: "Focus on retention."}, 0)
	id := createConversation(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/conversations/" + id + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v (res=%+v)", err, res)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "user_message", "text": "startup marketing"}); err != nil {
		t.Fatalf("write ws message: %v", err)
	}
	var event struct {
		Type    string       `json:"type"`
		Outcome chat.Outcome `json:"outcome"`
		Reply   string       `json:"reply"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read ws event: %v", err)
	}
	if event.Type != "turn" || event.Outcome != chat.OutcomeAnswered {
		t.Fatalf("unexpected ws event: %+v", event)
	}
	if event.Reply != "Focus on retention." {
		t.Fatalf("ws reply = %q", event.Reply)
	}
}
