package chat

// Query is the current user turn plus a read-only snapshot of the prior
// conversation taken at turn start.
type Query struct {
	SessionID string
	Text      string
	Language  string
	History   []Message
}

// TurnResult is what the pipeline hands back to transport handlers.
type TurnResult struct {
	Content                string   `json:"content"`
	IsEmergency            bool     `json:"isEmergency"`
	HasDisclaimer          bool     `json:"hasDisclaimer"`
	RequiresAcknowledgment bool     `json:"requiresAcknowledgment,omitempty"`
	Sources                []string `json:"sources,omitempty"`
	State                  string   `json:"state"`
	ResponseTimeMs         int64    `json:"responseTimeMs"`
}
