package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizforge/internal/domain"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialTake(t *testing.T, f *fixture, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/take?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	msg := readNext(t, conn)
	if msg.Type != "state" {
		t.Fatalf("expected state, got %s: %s", msg.Type, msg.Payload)
	}
	var state map[string]any
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestWebSocketTakingFlow(t *testing.T) {
	f := newFixture(t, nil, 5)
	token, user := f.login(t, "ada")
	conn := dialTake(t, f, "quizId=quiz-1&token="+token)

	if state := readState(t, conn); state["phase"] != "name_prompt" || state["playerName"] != "ada" {
		t.Fatalf("unexpected initial state %v", state)
	}

	send(t, conn, "start", map[string]string{"name": "Ada"})
	if state := readState(t, conn); state["phase"] != "in_progress" || state["index"] != float64(0) {
		t.Fatalf("unexpected state after start %v", state)
	}

	// Advancing without an answer is rejected and the index stays put.
	send(t, conn, "advance", nil)
	if msg := readNext(t, conn); msg.Type != "error" || !strings.Contains(string(msg.Payload), "answer required") {
		t.Fatalf("expected answer required error, got %s %s", msg.Type, msg.Payload)
	}
	if state := readState(t, conn); state["index"] != float64(0) {
		t.Fatalf("index moved after rejected advance: %v", state)
	}

	send(t, conn, "select", map[string]int{"option": 2})
	readState(t, conn)
	send(t, conn, "advance", nil)
	readState(t, conn)
	send(t, conn, "select", map[string]int{"option": 1})
	readState(t, conn)
	send(t, conn, "advance", nil)

	msg := readNext(t, conn)
	if msg.Type != "completed" {
		t.Fatalf("expected completed, got %s %s", msg.Type, msg.Payload)
	}
	var result domain.AttemptResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Score != 1 || result.Percentage() != 50 || result.PlayerName != "Ada" || result.ID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if state := readState(t, conn); state["phase"] != "completed" {
		t.Fatalf("expected completed phase, got %v", state)
	}

	stored, err := f.service.ResultsByUser(context.Background(), user.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("expected one stored result, got %d (%v)", len(stored), err)
	}
}

func TestWebSocketSessionExpiryKeepsLastQuestion(t *testing.T) {
	f := newFixture(t, nil, 5)
	token, _ := f.login(t, "ada")
	conn := dialTake(t, f, "quizId=quiz-1&token="+token)
	readState(t, conn)

	send(t, conn, "start", map[string]string{"name": "Ada"})
	readState(t, conn)
	send(t, conn, "select", map[string]int{"option": 2})
	readState(t, conn)
	send(t, conn, "advance", nil)
	readState(t, conn)
	send(t, conn, "select", map[string]int{"option": 0})
	readState(t, conn)

	if err := f.auth.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	send(t, conn, "advance", nil)
	msg := readNext(t, conn)
	if msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
	var payload errorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Kind != "auth" {
		t.Fatalf("expected auth error, got %+v", payload)
	}
	if state := readState(t, conn); state["phase"] != "in_progress" || state["index"] != float64(1) {
		t.Fatalf("expected to stay on last question, got %v", state)
	}

	// Signing in again on the same connection lets the retry complete.
	res, err := f.auth.Login(context.Background(), "ada", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	send(t, conn, "auth", map[string]string{"token": res.Token})
	readState(t, conn)
	send(t, conn, "advance", nil)
	if msg := readNext(t, conn); msg.Type != "completed" {
		t.Fatalf("expected completed after re-auth, got %s %s", msg.Type, msg.Payload)
	}
}

func TestWebSocketWithoutTokenStaysUnauthenticated(t *testing.T) {
	f := newFixture(t, nil, 5)
	conn := dialTake(t, f, "quizId=quiz-1")
	if state := readState(t, conn); state["phase"] != "unauthenticated" {
		t.Fatalf("unexpected state %v", state)
	}
	send(t, conn, "start", map[string]string{"name": "Ada"})
	if msg := readNext(t, conn); msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
	if state := readState(t, conn); state["phase"] != "unauthenticated" {
		t.Fatalf("phase changed: %v", state)
	}
}

func TestWebSocketUnknownQuiz(t *testing.T) {
	f := newFixture(t, nil, 5)
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/take?quizId=missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %v", resp)
	}
}
