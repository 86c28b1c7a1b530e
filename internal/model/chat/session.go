package chat

import "time"

// Session captures one user's conversation window with the assistant.
// A session is usable only while now < ExpiresAt; every accepted turn
// pushes the expiry window forward.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Acknowledged   bool      `json:"acknowledged"`
}

// Expired reports whether the session is past its inactivity window.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
