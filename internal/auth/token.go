// Package auth implements sign-in for the site: the Discord OAuth client,
// signed session cookies, and the request guard that resolves them.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /auth/discord → redirected to Discord's authorize page
//  2. Discord calls back /auth/discord/callback with a code
//  3. Server exchanges the code for a token, fetches the profile, upserts the user
//  4. Server creates a server-side session and sets the "session" cookie
//  5. On later requests the guard reads the cookie, verifies it, looks the
//     session up and attaches the user's Identity to the request context
//
// SESSION COOKIE FORMAT:
// The cookie value is an HS256 JWT whose subject is the opaque session ID.
// The signature stops clients from forging or guessing session IDs; the
// server-side session record is what makes logout effective immediately.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	tokenIssuer = "rumora"

	// keyInfo binds the derived key to this one use of SESSION_SECRET.
	keyInfo = "rumora session cookie v1"

	// MinSecretLength is the shortest session secret NewTokenService accepts.
	MinSecretLength = 16
)

// TokenService signs and verifies session cookie values.
type TokenService struct {
	key []byte
}

// NewTokenService derives a 256-bit signing key from secret with HKDF-SHA256.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("auth: deriving signing key: %w", err)
	}
	return &TokenService{key: key}, nil
}

// Generate signs a token for sessionID that expires after ttl.
func (s *TokenService) Generate(sessionID string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: session ID must not be empty")
	}

	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    tokenIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the session ID it carries.
//
// The signing method is pinned to HS256 so a token claiming "none" or an
// asymmetric algorithm is rejected before the key is used.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
