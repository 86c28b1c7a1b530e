package chat

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageMetadata records how a message was produced and vetted.
type MessageMetadata struct {
	HasDisclaimer  bool  `json:"hasDisclaimer"`
	IsEmergency    bool  `json:"isEmergency"`
	SafetyChecked  bool  `json:"safetyChecked"`
	ResponseTimeMs int64 `json:"responseTimeMs,omitempty"`
}

// Message is one immutable entry in a session's conversation. Messages are
// append-only; the slice order held by the store is the conversation order.
type Message struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Language  string          `json:"language,omitempty"`
	Metadata  MessageMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
}
