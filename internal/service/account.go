// Package service contains the business rules of the site.
//
//	Handler (HTTP) → AccountService / SessionService / CatalogService → repository
//	                                   ↘ auth.TokenService
//
// Services never touch http.Request or cookies; handlers never touch the
// stores directly.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/model"
	"github.com/rumora/website/internal/repository"
)

// TrialPeriod is how long a new account's trial lasts from its first login.
const TrialPeriod = 7 * 24 * time.Hour

// AccountService owns user accounts: login upsert, lookup and entitlements.
type AccountService struct {
	users  repository.UserRepository
	admins map[string]struct{}
	now    func() time.Time
	logger *slog.Logger
}

// NewAccountService creates an AccountService. adminIDs is the allow-list of
// provider user IDs that are made admins when their account is created.
func NewAccountService(users repository.UserRepository, adminIDs []string, logger *slog.Logger) *AccountService {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AccountService{
		users:  users,
		admins: admins,
		now:    time.Now,
		logger: logger,
	}
}

// Login creates or refreshes the account for an identity-provider profile.
//
// FIRST LOGIN creates the record: provider fields, isAdmin from the
// allow-list, the free plan, a trial ending TrialPeriod from now, and zeroed
// entitlements.
//
// LATER LOGINS replace only the provider fields (username, display name,
// discriminator, avatar, email) and lastLoginAt. Plan, trial, join date,
// admin flag and cape entitlements are kept.
func (s *AccountService) Login(ctx context.Context, p *auth.Profile) (*model.User, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("service/account: profile must have an ID")
	}

	now := s.now().UTC()
	user, err := s.users.Upsert(ctx, p.ID, func(existing *model.User) *model.User {
		if existing == nil {
			_, admin := s.admins[p.ID]
			return &model.User{
				Username:      p.Username,
				DisplayName:   p.DisplayName,
				Discriminator: p.Discriminator,
				AvatarURL:     p.AvatarURL,
				Email:         p.Email,
				IsAdmin:       admin,
				Plan:          model.PlanFree,
				TrialEndsAt:   now.Add(TrialPeriod),
				JoinedAt:      now,
				LastLoginAt:   now,
			}
		}

		next := *existing
		next.Username = p.Username
		next.DisplayName = p.DisplayName
		next.Discriminator = p.Discriminator
		next.AvatarURL = p.AvatarURL
		next.Email = p.Email
		next.LastLoginAt = now
		return &next
	})
	if err != nil {
		return nil, fmt.Errorf("service/account: upserting user %s: %w", p.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("provider", p.Provider),
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// GetUserByID returns the account for id.
func (s *AccountService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ClaimCape grants the one free cape. The check and the increment run as a
// single store update, so concurrent claims for one user cannot both succeed.
// A second claim returns apperror.AlreadyClaimed and changes nothing.
func (s *AccountService) ClaimCape(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.Update(ctx, userID, func(u *model.User) error {
		if u.FreeCapeClaimed {
			return apperror.AlreadyClaimed("free cape")
		}
		u.CapeCount++
		u.FreeCapeClaimed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/account: claiming cape for %s: %w", userID, err)
	}

	s.logger.Info("free cape claimed",
		slog.String("userID", user.ID),
		slog.Int("capeCount", user.CapeCount),
	)
	return user, nil
}
