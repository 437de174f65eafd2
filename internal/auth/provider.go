package auth

import (
	"context"
	"errors"
)

// ErrMissingCode is returned by Exchange when the callback carried no
// authorization code. No network call is made in that case.
var ErrMissingCode = errors.New("auth: missing authorization code")

// Profile is an identity provider's user, normalized for the account layer.
type Profile struct {
	Provider      string
	ID            string // provider's stable user ID
	Username      string
	DisplayName   string
	Discriminator string
	AvatarURL     string // always set: a provider avatar or a default one
	Email         string // empty unless the provider granted it
}

// Provider is one OAuth 2.0 authorization-code identity provider.
//
// AuthURL is the REDIRECTED step; Exchange covers EXCHANGING and
// FETCHING_PROFILE and returns either a profile or a single error.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}
