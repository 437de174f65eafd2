// Package memory implements the repository interfaces with process-local maps.
//
// LIFETIME:
// Everything stored here lives as long as the process. A restart clears all
// users and sessions.
//
// LOCKING:
// Each store guards its map with one mutex. Read-modify-write callbacks
// (Upsert, Update) run while the lock is held, so updates to the same record
// are serialized. Values are copied on the way in and out; callers never hold
// a pointer into the map.
package memory

import (
	"context"
	"sync"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is an in-memory repository.UserRepository.
type UserStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.User)}
}

// GetUserByID returns a copy of the user, or apperror.ErrNotFound.
func (s *UserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

// Put stores user under user.ID, replacing any existing record.
func (s *UserStore) Put(_ context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return apperror.ValidationFailed("id", "user ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = *user
	return nil
}

// Delete removes the user. Deleting an unknown ID is not an error.
func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.users), nil
}

// Upsert runs fn against the current record (nil when absent) under the lock
// and stores its result. The returned user is a copy of what was stored.
//
// The record's ID is always forced to id, whatever fn returns.
func (s *UserStore) Upsert(_ context.Context, id string, fn func(existing *model.User) *model.User) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *model.User
	if u, ok := s.users[id]; ok {
		existing = &u
	}

	next := fn(existing)
	if next == nil {
		return nil, apperror.ValidationFailed("user", "upsert produced no record")
	}
	next.ID = id
	s.users[id] = *next

	stored := *next
	return &stored, nil
}

// Update runs fn against a copy of the stored user under the lock. The copy is
// written back only when fn returns nil.
func (s *UserStore) Update(_ context.Context, id string, fn func(user *model.User) error) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}

	if err := fn(&u); err != nil {
		return nil, err
	}
	u.ID = id
	s.users[id] = u

	stored := u
	return &stored, nil
}
