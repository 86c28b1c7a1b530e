package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumohealth/companion/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrTurnInFlight    = errors.New("turn already in flight for session")
)

// sessionState pairs a session with its append-only message sequence and
// the in-flight marker that serializes turns.
type sessionState struct {
	session  chat.Session
	messages []chat.Message
	inFlight bool
}

// Service owns session and conversation state. Messages are append-only and
// never reordered; turn serialization is per session, so independent
// sessions proceed in parallel.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	ttl      time.Duration
	now      func() time.Time
}

// NewService bootstraps the in-memory session store with the given
// inactivity window.
func NewService(ttl time.Duration) *Service {
	return &Service{
		sessions: make(map[string]*sessionState),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// CreateSession provisions a session for the given language.
func (s *Service) CreateSession(_ context.Context, userID, language string) (chat.Session, error) {
	if language == "" {
		language = "en"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	session := chat.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Language:       language,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.ttl),
	}

	s.sessions[session.ID] = &sessionState{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return state.session, nil
}

// Messages returns a copy of the stored conversation for the session.
func (s *Service) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(state.messages))
	copy(copied, state.messages)
	return copied, nil
}

// BeginTurn claims the session for one turn. It rejects unknown and expired
// sessions, and rejects a second turn while one is in flight. On success it
// pushes the inactivity window forward and returns a snapshot of the
// session and its history taken at turn start.
func (s *Service) BeginTurn(_ context.Context, sessionID string) (chat.Session, []chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, nil, ErrSessionNotFound
	}

	now := s.now().UTC()
	if state.session.Expired(now) {
		return chat.Session{}, nil, ErrSessionExpired
	}
	if state.inFlight {
		return chat.Session{}, nil, ErrTurnInFlight
	}

	state.inFlight = true
	state.session.LastActivityAt = now
	state.session.ExpiresAt = now.Add(s.ttl)

	snapshot := make([]chat.Message, len(state.messages))
	copy(snapshot, state.messages)
	return state.session, snapshot, nil
}

// EndTurn releases the session's turn claim. A session that expired while
// the turn was running keeps its result; expiry takes effect for the next
// BeginTurn.
func (s *Service) EndTurn(_ context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.sessions[sessionID]; ok {
		state.inFlight = false
	}
}

// AppendMessage appends a message to the session history, assigning its id
// and timestamp. Appended messages are immutable.
func (s *Service) AppendMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[message.SessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now().UTC()
	}

	state.messages = append(state.messages, message)
	return message, nil
}

// MarkAcknowledged records that the user accepted the initial disclaimer.
func (s *Service) MarkAcknowledged(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	state.session.Acknowledged = true
	return nil
}

// RecreateSession replaces an expired session with a fresh one under the
// same id: zero prior messages, no acknowledgment carried over.
func (s *Service) RecreateSession(_ context.Context, sessionID, language string) (chat.Session, error) {
	if language == "" {
		language = "en"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	session := chat.Session{
		ID:             sessionID,
		Language:       language,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.ttl),
	}

	s.sessions[sessionID] = &sessionState{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	return session, nil
}
