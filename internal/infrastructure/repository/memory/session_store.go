package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// SessionStore keeps live upload sessions in process memory. Sessions idle
// for longer than ttl are dropped on the next Put.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

type entry struct {
	session *domain.UploadSession
	touched time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

func (s *SessionStore) Put(_ context.Context, session *domain.UploadSession) error {
	if session == nil {
		return domain.WrapError(domain.ErrInvalidInput, "put session", fmt.Errorf("session is nil"))
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(now)
	s.sessions[session.ID()] = entry{session: session, touched: now}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e, now) {
		delete(s.sessions, id)
		return nil, domain.WrapError(domain.ErrNotFound, "get session", fmt.Errorf("session %s", id))
	}
	e.touched = now
	s.sessions[id] = e
	return e.session, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete session", fmt.Errorf("session %s", id))
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) evictLocked(now time.Time) {
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
		}
	}
}

// expired never drops a session that is mid-upload.
func (s *SessionStore) expired(e entry, now time.Time) bool {
	if s.ttl <= 0 || e.session.State() == domain.StateUploading {
		return false
	}
	return now.Sub(e.touched) > s.ttl
}
