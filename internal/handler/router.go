package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/lumohealth/companion/backend/internal/handler/chat"
	"github.com/lumohealth/companion/backend/internal/handler/stream"
	turnHandler "github.com/lumohealth/companion/backend/internal/handler/turn"
	"github.com/lumohealth/companion/backend/internal/handler/ws"
	middlewarePkg "github.com/lumohealth/companion/backend/internal/middleware"
	chatservice "github.com/lumohealth/companion/backend/internal/service/chat"
	"github.com/lumohealth/companion/backend/internal/service/disclaimer"
	"github.com/lumohealth/companion/backend/internal/service/pipeline"
	"github.com/lumohealth/companion/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatservice.Service, disclaimers *disclaimer.Manager, acks disclaimer.AckStore, controller *pipeline.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := chatHandler.New(chatSvc, disclaimers, acks)
	pipelineHandler := turnHandler.New(controller)
	streamHandler := stream.New(controller)
	wsHandler := ws.New(controller)

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		pipelineHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")
			language := r.URL.Query().Get("language")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage, language); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
