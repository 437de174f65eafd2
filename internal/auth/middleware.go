package auth

import (
	"context"
	"net/http"

	"github.com/rumora/website/internal/model"
)

// SessionCookie is the name of the cookie carrying the signed session token.
const SessionCookie = "session"

// contextKey is unexported so only this package can set or read identities.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the resolved caller of a request: a signed-in user or a guest.
// Handlers always receive one of the two, never a missing value.
type Identity struct {
	User *model.User
}

// Guest is the identity of a request with no usable session.
func Guest() Identity { return Identity{} }

// IsGuest reports whether no user is signed in.
func (i Identity) IsGuest() bool { return i.User == nil }

// SessionResolver turns a session cookie value into the signed-in user.
// Any error means the request is unauthenticated.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.User, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by one of the guards, or
// Guest when none ran.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Guest()
}

// RequireUser guards HTML routes. A request without a resolvable session is
// redirected (303) to signInPath and never reaches next.
func RequireUser(sessions SessionResolver, signInPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolve(r, sessions)
			if id.IsGuest() {
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUserAPI guards JSON routes. A request without a resolvable session
// gets 401 with the standard error body.
func RequireUserAPI(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolve(r, sessions)
			if id.IsGuest() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalUser attaches the signed-in user when there is one and Guest
// otherwise. It never blocks the request.
func OptionalUser(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), resolve(r, sessions))))
		})
	}
}

// resolve reads the session cookie and asks sessions for its user.
// A missing cookie and a failed lookup both yield Guest.
func resolve(r *http.Request, sessions SessionResolver) Identity {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return Guest()
	}

	user, err := sessions.ResolveSession(r.Context(), cookie.Value)
	if err != nil || user == nil {
		return Guest()
	}
	return Identity{User: user}
}
