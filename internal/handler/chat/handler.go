package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/lumohealth/companion/backend/internal/service/chat"
	"github.com/lumohealth/companion/backend/internal/service/disclaimer"
	"github.com/lumohealth/companion/backend/pkg/utils"
)

// Handler exposes session lifecycle and disclaimer acknowledgment over HTTP.
type Handler struct {
	chatSvc     *chatservice.Service
	disclaimers *disclaimer.Manager
	acks        disclaimer.AckStore
}

// New creates the session handler.
func New(chatSvc *chatservice.Service, disclaimers *disclaimer.Manager, acks disclaimer.AckStore) *Handler {
	return &Handler{chatSvc: chatSvc, disclaimers: disclaimers, acks: acks}
}

// RegisterRoutes registers session-related routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/session/{sessionID}/acknowledge", h.handleAcknowledge)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Get("/disclaimer", h.handleGetDisclaimer)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID   string `json:"userId"`
		Language string `json:"language"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.UserID, payload.Language)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	initial := h.disclaimers.Get(disclaimer.TypeInitial, session.Language, "")
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session":    session,
		"disclaimer": initial,
	})
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.acks.Record(r.Context(), sessionID, disclaimer.TypeInitial); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to record acknowledgment")
		return
	}
	if err := h.chatSvc.MarkAcknowledged(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.Messages(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleGetDisclaimer(w http.ResponseWriter, r *http.Request) {
	typ := disclaimer.Type(r.URL.Query().Get("type"))
	switch typ {
	case disclaimer.TypeInitial, disclaimer.TypeInline, disclaimer.TypeEmergency:
	case "":
		typ = disclaimer.TypeInitial
	default:
		utils.RespondError(w, http.StatusBadRequest, "unknown disclaimer type")
		return
	}

	language := r.URL.Query().Get("language")
	utils.RespondJSON(w, http.StatusOK, h.disclaimers.Get(typ, language, r.URL.Query().Get("context")))
}
