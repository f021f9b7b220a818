package workout

import (
	"context"
	"sort"
	"sync"
)

// Store persists finished sessions.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
}

// InMemoryStore is an in-memory implementation of Store.
// This is intended for testing. Production should use PostgresStore.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
	}
}

// Save stores a finished session. Saving an ID twice keeps the first copy.
func (s *InMemoryStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		s.sessions[session.ID] = session
	}
	return nil
}

// Get retrieves a session by ID.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// List returns all stored sessions, most recent start first.
func (s *InMemoryStore) List(_ context.Context) ([]Session, error) {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}
