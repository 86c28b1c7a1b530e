package audit

import (
	"time"

	"github.com/lumohealth/companion/backend/internal/model/safety"
)

// Safety log actions.
const (
	ActionAllowed  = "allowed"
	ActionBlocked  = "blocked"
	ActionModified = "modified"
)

// SafetyLog is a write-once audit record for a safety decision. A later
// status change is a new record pointing at the original via RefID, never an
// update in place.
type SafetyLog struct {
	ID         string                   `json:"id"`
	SessionID  string                   `json:"sessionId"`
	Timestamp  time.Time                `json:"timestamp"`
	Action     string                   `json:"action"`
	Severity   safety.Severity          `json:"severity"`
	Violations []safety.SafetyViolation `json:"violations,omitempty"`
	Attempt    int                      `json:"attempt,omitempty"`
	RefID      string                   `json:"refId,omitempty"`
}

// EmergencyLog is a write-once audit record for a detected emergency.
type EmergencyLog struct {
	ID           string                      `json:"id"`
	SessionID    string                      `json:"sessionId"`
	Timestamp    time.Time                   `json:"timestamp"`
	Category     string                      `json:"category"`
	UrgencyLevel safety.Urgency              `json:"urgencyLevel"`
	Indicators   []safety.EmergencyIndicator `json:"indicators"`
	RefID        string                      `json:"refId,omitempty"`
}

// QueryMetrics summarises one processed turn for the analytics sink.
type QueryMetrics struct {
	SessionID      string    `json:"sessionId"`
	Timestamp      time.Time `json:"timestamp"`
	State          string    `json:"state"`
	Attempts       int       `json:"attempts"`
	IsEmergency    bool      `json:"isEmergency"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
}
