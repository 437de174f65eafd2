package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/repository"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore is an in-memory repository.SessionRepository.
//
// Expired sessions are invisible to Get (and dropped on the way) even before
// PurgeExpired sweeps them.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewSessionStore returns an empty SessionStore using the wall clock.
func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock returns an empty SessionStore that reads the time
// from now. Tests use it to move past expiry without sleeping.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]model.Session),
		now:      now,
	}
}

func (s *SessionStore) Put(_ context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return apperror.ValidationFailed("id", "session ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, apperror.NotFound("session", id)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}
