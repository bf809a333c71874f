package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/arix-mart/backend/internal/handler/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/handler/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/handler/stream"
	"github.com/zhouzirui/arix-mart/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/arix-mart/backend/internal/middleware"
	personaModel "github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	chatService "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
	"github.com/zhouzirui/arix-mart/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(logger zerolog.Logger, personas personaModel.Store, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewarePkg.Metrics)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)
	})

	return r
}
