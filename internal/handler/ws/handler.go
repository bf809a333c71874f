package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	chatService "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second

	maxMessageBytes = 16 << 10
)

// Handler serves a duplex chat channel: intents in, dispatcher events out.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// SubmitMessage carries user text for a "submit" intent.
type SubmitMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
	logger    zerolog.Logger
}

func (c *conn) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *conn) sendError(message string) {
	if err := c.send("error", map[string]string{"message": message}); err != nil {
		c.logger.Debug().Err(err).Msg("websocket error write failed")
	}
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	d, err := h.chatSvc.Dispatcher(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{
		ws:        ws,
		sessionID: sessionID,
		logger:    log.With().Str("session", sessionID).Logger(),
	}

	snap, events, unsubscribe, err := d.Subscribe(ctx)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	defer unsubscribe()

	c.logger.Debug().Msg("websocket connected")
	if err := c.send("connected", snap); err != nil {
		return
	}

	go h.pumpEvents(ctx, cancel, c, events)

	ws.SetReadLimit(maxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}

		h.handleMessage(ctx, c, d, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, d *dispatch.Dispatcher, msg *inboundMessage) {
	switch msg.Type {
	case "submit":
		var payload SubmitMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid submit payload")
			return
		}
		accepted, err := d.Submit(ctx, payload.Text)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		_ = c.send("submitted", map[string]bool{"accepted": accepted})
	case "clear":
		if err := d.Clear(ctx); err != nil {
			c.sendError(err.Error())
		}
	case "snapshot":
		snap, err := d.Snapshot(ctx)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		_ = c.send("snapshot", snap)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

// pumpEvents forwards dispatcher events and keeps the connection alive.
func (h *Handler) pumpEvents(ctx context.Context, cancel context.CancelFunc, c *conn, events <-chan dispatch.Event) {
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = c.send("closed", nil)
				_ = c.ws.Close()
				return
			}
			if err := c.send("event", ev); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
