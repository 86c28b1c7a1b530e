package disclaimer

import (
	"context"
	"sync"
	"time"
)

// AckStore tracks which subjects (user or session ids) have acknowledged
// which disclaimer types. Acknowledgment is the only stateful part of
// disclaimer handling; it lives behind this interface so a persistent store
// can replace the in-memory one.
type AckStore interface {
	Record(ctx context.Context, subjectID string, typ Type) error
	Has(ctx context.Context, subjectID string, typ Type) (bool, error)
	Revoke(ctx context.Context, subjectID string) error
}

type ackKey struct {
	subject string
	typ     Type
}

// MemoryAckStore implements AckStore in process.
type MemoryAckStore struct {
	mu   sync.RWMutex
	acks map[ackKey]time.Time
}

// NewMemoryAckStore returns an empty acknowledgment store.
func NewMemoryAckStore() *MemoryAckStore {
	return &MemoryAckStore{acks: make(map[ackKey]time.Time)}
}

func (s *MemoryAckStore) Record(_ context.Context, subjectID string, typ Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks[ackKey{subjectID, typ}] = time.Now().UTC()
	return nil
}

func (s *MemoryAckStore) Has(_ context.Context, subjectID string, typ Type) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.acks[ackKey{subjectID, typ}]
	return ok, nil
}

// Revoke drops every acknowledgment for the subject. Used when an expired
// session is recreated so nothing carries over.
func (s *MemoryAckStore) Revoke(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.acks {
		if key.subject == subjectID {
			delete(s.acks, key)
		}
	}
	return nil
}
