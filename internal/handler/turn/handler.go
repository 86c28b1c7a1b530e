package turn

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/lumohealth/companion/backend/internal/service/chat"
	"github.com/lumohealth/companion/backend/internal/service/pipeline"
	"github.com/lumohealth/companion/backend/pkg/utils"
)

// Handler exposes the turn pipeline over HTTP.
type Handler struct {
	controller *pipeline.Controller
}

// New creates the turn handler.
func New(controller *pipeline.Controller) *Handler {
	return &Handler{controller: controller}
}

// RegisterRoutes registers the turn route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/turn", h.handleTurn)
}

type turnRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Language  string `json:"language"`
}

type turnError struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, turnError{Error: "invalid request body"})
		return
	}
	if payload.SessionID == "" {
		utils.RespondJSON(w, http.StatusBadRequest, turnError{Error: "sessionId is required"})
		return
	}

	result, err := h.controller.HandleTurn(r.Context(), payload.SessionID, payload.Message, payload.Language)
	if err != nil {
		status, resp := mapTurnError(err)
		utils.RespondJSON(w, status, resp)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// mapTurnError translates internal failures into a small set of
// non-technical user-facing messages. Technical detail stays in the logs.
func mapTurnError(err error) (int, turnError) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		return http.StatusBadRequest, turnError{Error: "please enter a question"}
	case errors.Is(err, pipeline.ErrQueryTooLong):
		return http.StatusBadRequest, turnError{Error: "that question is too long, please shorten it"}
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return http.StatusNotFound, turnError{Error: "session not found, please start a new session"}
	case errors.Is(err, chatservice.ErrTurnInFlight):
		return http.StatusConflict, turnError{Error: "the previous message is still being answered, please wait", Retryable: true}
	default:
		log.Printf("[turn] internal error: %v", err)
		return http.StatusInternalServerError, turnError{Error: "something went wrong while preparing your answer, please try again", Retryable: true}
	}
}
