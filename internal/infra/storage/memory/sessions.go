package memory

import (
	"context"
	"sync"

	domainauth "depositrent/internal/domain/auth"
)

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[domainauth.Token]*domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[domainauth.Token]*domainauth.Session)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	copied := *session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[session.Token] = &copied
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.tokens[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
