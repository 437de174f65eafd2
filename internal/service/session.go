package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/repository"
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionService binds signed session tokens to server-side session records.
//
// A token is only as good as its record: deleting the record (logout, expiry)
// invalidates the cookie even though its signature is still valid.
type SessionService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	tokens   *auth.TokenService
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ auth.SessionResolver = (*SessionService)(nil)

// NewSessionService creates a SessionService. A non-positive ttl means
// DefaultSessionTTL.
func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	tokens *auth.TokenService,
	ttl time.Duration,
	logger *slog.Logger,
) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// TTL is the lifetime of new sessions and their cookies.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Start creates a session for userID and returns the cookie token for it.
func (s *SessionService) Start(ctx context.Context, userID string) (string, *model.Session, error) {
	now := s.now()
	sess := &model.Session{
		ID:        xid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokens.Generate(sess.ID, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("service/session: signing session for %s: %w", userID, err)
	}

	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("service/session: storing session for %s: %w", userID, err)
	}

	return token, sess, nil
}

// ResolveSession verifies token and returns the user its session belongs to.
func (s *SessionService) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service/session: %w", err)
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("service/session: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/session: user for session %s: %w", sessionID, err)
	}
	return user, nil
}

// End deletes the session behind token. An invalid or unknown token is not
// an error: the caller is logged out either way.
func (s *SessionService) End(ctx context.Context, token string) error {
	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("service/session: deleting %s: %w", sessionID, err)
	}
	return nil
}

// PurgeExpired drops sessions past their expiry.
func (s *SessionService) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.sessions.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("service/session: purging: %w", err)
	}
	if n > 0 {
		s.logger.Debug("expired sessions purged", slog.Int("count", n))
	}
	return n, nil
}
