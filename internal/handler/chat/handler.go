package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	chatService "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
	"github.com/zhouzirui/arix-mart/backend/pkg/utils"
)

// maxMessageBytes caps a submitted message body.
const maxMessageBytes = 16 << 10

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleCloseSession)
		r.Get("/messages", h.handleTranscript)
		r.Post("/messages", h.handleSubmit)
		r.Delete("/messages", h.handleClear)
	})
}

// handleCreateSession 创建会话. An empty body selects the default persona.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTranscript 返回会话记录与请求状态
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	d, err := h.chatSvc.Dispatcher(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	snap, err := d.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

// handleSubmit 提交用户消息. A blank message, or one sent while a reply is
// pending, is dropped and reported with accepted=false.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.chatSvc.Dispatcher(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	accepted, err := d.Submit(r.Context(), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	snap, err := d.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]any{
		"accepted": accepted,
		"state":    snap.State,
		"busy":     snap.Busy,
	})
}

// handleClear 清空会话记录
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	d, err := h.chatSvc.Dispatcher(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := d.Clear(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}

	snap, err := d.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrPersonaNotFound):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrStopped), errors.Is(err, chatService.ErrClosed):
		utils.RespondError(w, http.StatusGone, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.Error().Err(err).Msg("chat request failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
