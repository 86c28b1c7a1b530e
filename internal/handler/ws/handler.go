package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lumohealth/companion/backend/internal/service/pipeline"
)

// Handler runs turns over a persistent WebSocket connection, for clients
// that keep a conversation open instead of polling the REST endpoint.
type Handler struct {
	controller *pipeline.Controller
	upgrader   websocket.Upgrader
}

// New creates the WebSocket turn handler.
func New(controller *pipeline.Controller) *Handler {
	return &Handler{
		controller: controller,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type turnMessage struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened session=%s", sessionID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error session=%s: %v", sessionID, err)
			}
			return
		}

		switch inbound.Type {
		case "turn":
			var msg turnMessage
			if err := json.Unmarshal(inbound.Data, &msg); err != nil {
				h.send(conn, sessionID, "error", map[string]string{"error": "invalid turn payload"})
				continue
			}
			h.runTurn(conn, r, sessionID, msg)
		case "ping":
			h.send(conn, sessionID, "pong", nil)
		default:
			h.send(conn, sessionID, "error", map[string]string{"error": "unknown message type"})
		}
	}
}

func (h *Handler) runTurn(conn *websocket.Conn, r *http.Request, sessionID string, msg turnMessage) {
	result, err := h.controller.HandleTurn(r.Context(), sessionID, msg.Text, msg.Language)
	if err != nil {
		log.Printf("[ws] turn failed session=%s: %v", sessionID, err)
		h.send(conn, sessionID, "error", map[string]string{
			"error": "something went wrong while preparing your answer, please try again",
		})
		return
	}

	h.send(conn, sessionID, "response", result)
}

func (h *Handler) send(conn *websocket.Conn, sessionID, typ string, data interface{}) {
	out := outgoingMessage{
		Type:      typ,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(out); err != nil {
		log.Printf("[ws] write failed session=%s: %v", sessionID, err)
	}
}
