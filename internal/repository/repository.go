// Package repository declares the storage interfaces the services depend on.
//
// Implementations live in sub-packages (memory). Services receive these
// interfaces, never a concrete store, so a persistent backend can replace the
// in-memory one without touching business logic.
package repository

import (
	"context"
	"time"

	"github.com/rumora/website/internal/model"
)

// UserRepository stores user profiles keyed by the provider's user ID.
//
// ATOMICITY:
// Upsert and Update are read-modify-write operations. Implementations must
// run the callback while holding whatever lock protects the record, so two
// concurrent calls for the same ID cannot interleave. Callbacks must not block.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	Put(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// Upsert calls fn with the stored user (nil if absent) and stores the
	// record fn returns under id.
	Upsert(ctx context.Context, id string, fn func(existing *model.User) *model.User) (*model.User, error)

	// Update calls fn with a copy of the stored user and stores it if fn
	// returns nil. It returns apperror.ErrNotFound for an unknown id; any
	// error from fn is returned unchanged and nothing is written.
	Update(ctx context.Context, id string, fn func(user *model.User) error) (*model.User, error)
}

// SessionRepository maps opaque session IDs to user IDs.
type SessionRepository interface {
	Put(ctx context.Context, session *model.Session) error
	// Get returns apperror.ErrNotFound for unknown and expired sessions.
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes every session expired at now and reports how many.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
