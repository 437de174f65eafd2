// Package model defines the data structures used throughout the application.
package model

import "time"

// PlanFree is the lowest tier. Every account starts on it; nothing else in
// the system treats the plan as authoritative.
const PlanFree = "free"

// User is a signed-in account, keyed by the identity provider's user ID.
//
// PROVIDER FIELDS vs ACCOUNT FIELDS:
// Username, DisplayName, Discriminator, AvatarURL and Email come from the
// identity provider and are refreshed on every login. Plan, CapeCount,
// FreeCapeClaimed, TrialEndsAt, JoinedAt and IsAdmin belong to the account and
// survive re-login.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatarUrl"`
	Email         string `json:"email,omitempty"` // empty unless the email scope was granted

	IsAdmin         bool   `json:"isAdmin"`
	Plan            string `json:"plan"`
	CapeCount       int    `json:"capeCount"`
	FreeCapeClaimed bool   `json:"freeCapeClaimed"`

	TrialEndsAt time.Time `json:"trialEndsAt"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// Name returns the best human-facing name for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
