// internal/state/session.go
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/schemabot/internal/types"
)

// SessionStore is an in-memory session registry. Nothing is persisted: a
// session context exists from session start until the transport ends it.
// The store only guards its maps; each context is mutated from a single
// session lane, so the contexts themselves need no locking.
type SessionStore struct {
	mu    sync.RWMutex
	byKey map[types.SessionKey]*types.SessionContext
	byID  map[types.SessionID]*types.SessionContext
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byKey: make(map[types.SessionKey]*types.SessionContext),
		byID:  make(map[types.SessionID]*types.SessionContext),
	}
}

// ResolveOrCreate returns the session for the given key, creating it if
// needed. The second return value reports whether a new session was created.
func (s *SessionStore) ResolveOrCreate(_ context.Context, key types.SessionKey) (*types.SessionContext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[key]; ok {
		return existing, false, nil
	}

	session := &types.SessionContext{
		ID:        types.NewSessionID(),
		Key:       key,
		StartedAt: time.Now(),
	}
	s.byKey[key] = session
	s.byID[session.ID] = session
	return session, true, nil
}

// Lookup returns the session for the given key without creating one.
func (s *SessionStore) Lookup(_ context.Context, key types.SessionKey) (*types.SessionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byKey[key]
	return session, ok
}

// Get returns the session with the given ID.
func (s *SessionStore) Get(_ context.Context, id types.SessionID) (*types.SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return session, nil
}

// List returns all live sessions.
func (s *SessionStore) List(_ context.Context) ([]*types.SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*types.SessionContext, 0, len(s.byID))
	for _, session := range s.byID {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Update re-registers the session under its key. With pointer contexts this
// is a no-op for in-place edits; it exists so callers don't depend on that.
func (s *SessionStore) Update(_ context.Context, session *types.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[session.ID]; !ok {
		return fmt.Errorf("session not found: %s", session.ID)
	}
	s.byKey[session.Key] = session
	s.byID[session.ID] = session
	return nil
}

// End discards the session. Ending an unknown session is not an error; the
// transport may race its own teardown.
func (s *SessionStore) End(_ context.Context, id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byKey, session.Key)
	delete(s.byID, id)
	return nil
}
