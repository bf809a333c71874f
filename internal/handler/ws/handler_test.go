package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/arix-mart/backend/internal/model/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
)

type reverseCompleter struct{}

func (reverseCompleter) Complete(_ context.Context, text string) (string, error) {
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *chatservice.Service, chat.Session) {
	t.Helper()
	store := persona.NewMemoryStore(persona.Seed())
	chatSvc := chatservice.NewService(store, func(persona.Persona) ai.Completer { return reverseCompleter{} }, chatservice.Options{})

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)

	session, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		chatSvc.Close()
	})
	return conn, chatSvc, session
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketSubmitRoundTrip(t *testing.T) {
	conn, _, _ := dial(t)

	first := readMessage(t, conn)
	require.Equal(t, "connected", first.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "submit",
		"data": map[string]string{"text": "milk"},
	}))

	var (
		acked bool
		turns []chat.Turn
	)
	for !acked || len(turns) < 2 {
		msg := readMessage(t, conn)
		switch msg.Type {
		case "submitted":
			var ack map[string]bool
			require.NoError(t, json.Unmarshal(msg.Data, &ack))
			assert.True(t, ack["accepted"])
			acked = true
		case "event":
			var ev dispatch.Event
			require.NoError(t, json.Unmarshal(msg.Data, &ev))
			if ev.Kind == dispatch.EventTurn {
				turns = append(turns, *ev.Turn)
			}
		}
	}

	assert.Equal(t, "milk", turns[0].Text)
	assert.Equal(t, "klim", turns[1].Text)
}

func TestWebSocketClear(t *testing.T) {
	conn, _, _ := dial(t)
	require.Equal(t, "connected", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "clear"}))

	msg := readMessage(t, conn)
	require.Equal(t, "event", msg.Type)
	var ev dispatch.Event
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, dispatch.EventCleared, ev.Kind)
	require.NotNil(t, ev.Turn)
	assert.Equal(t, chat.RoleAssistant, ev.Turn.Role)
}

func TestWebSocketRejectsUnknownType(t *testing.T) {
	conn, _, _ := dial(t)
	require.Equal(t, "connected", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "audio"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestWebSocketSessionMismatch(t *testing.T) {
	conn, _, _ := dial(t)
	require.Equal(t, "connected", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "clear", "sessionId": "other"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}
