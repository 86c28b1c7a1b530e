package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/lumohealth/companion/backend/internal/service/pipeline"
	"github.com/lumohealth/companion/backend/pkg/utils"
)

// Handler delivers turn results over Server-Sent Events. The pipeline
// validates the complete answer before anything is shown, so the stream is
// staged (start / message / end) rather than token-by-token.
type Handler struct {
	controller *pipeline.Controller
}

// New creates a stream handler.
func New(controller *pipeline.Controller) *Handler {
	return &Handler{controller: controller}
}

// StreamResponse is one SSE payload.
type StreamResponse struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	State     string `json:"state,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn and streams the staged result.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage, language string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	result, err := h.controller.HandleTurn(ctx, sessionID, userMessage, language)
	if err != nil {
		log.Printf("[stream] turn failed session=%s: %v", sessionID, err)
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event: "error",
			Error: "something went wrong while preparing your answer, please try again",
		})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Content,
		State:     result.State,
	})

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		State:     result.State,
		Finished:  true,
	})

	log.Printf("[stream] completed turn session=%s state=%s", sessionID, result.State)
	return nil
}
