package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/model"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 10 * time.Minute
)

// Sign-in error codes passed back to the sign-in page.
const (
	errOAuthFailed      = "oauth_failed"
	errOAuthUnavailable = "oauth_unavailable"
	errUnknownProvider  = "unknown_provider"
)

// supportedProviders are the provider names the site knows about, configured
// or not. A known but unconfigured provider is "unavailable"; anything else
// is "unknown".
var supportedProviders = map[string]bool{"discord": true}

// AccountLogin creates or refreshes the account for a provider profile.
type AccountLogin interface {
	Login(ctx context.Context, p *auth.Profile) (*model.User, error)
}

// SessionIssuer starts and ends cookie-backed sessions.
type SessionIssuer interface {
	Start(ctx context.Context, userID string) (string, *model.Session, error)
	End(ctx context.Context, token string) error
	TTL() time.Duration
}

// AuthHandler runs the OAuth login flow and session cookies.
//
//   - HandleLogin    → redirect the browser to the provider (REDIRECTED)
//   - HandleCallback → exchange the code, upsert the account, start a session
//   - HandleLogout   → delete the session and clear the cookie
type AuthHandler struct {
	providers     map[string]auth.Provider
	accounts      AccountLogin
	sessions      SessionIssuer
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler for the configured providers.
// secureCookies marks cookies Secure; set it when the site is served over
// HTTPS.
func NewAuthHandler(
	providers []auth.Provider,
	accounts AccountLogin,
	sessions SessionIssuer,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	byName := make(map[string]auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{
		providers:     byName,
		accounts:      accounts,
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleLogin redirects to the provider's authorization page.
//
// HTTP: GET /auth/{provider}
//
// A random state is stored in a short-lived HttpOnly cookie and checked on
// callback, so only logins started here can complete.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusFound)
}

// HandleCallback completes the login.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Reject provider errors and a missing code before any network call
//  2. Check state against the cookie
//  3. Exchange the code for a profile (EXCHANGING, FETCHING_PROFILE)
//  4. Upsert the account and start a session (AUTHENTICATED)
//  5. Redirect to the dashboard
//
// Every failure lands on the sign-in page with a generic error code. No
// session is created and nothing from the provider reaches the response.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	// State is single-use whatever happens next.
	expectedState := ""
	if c, err := r.Cookie(stateCookie); err == nil {
		expectedState = c.Value
	}
	h.clearCookie(w, stateCookie)

	q := r.URL.Query()
	log := h.logger.With(slog.String("provider", provider.Name()))

	if errParam := q.Get("error"); errParam != "" {
		log.Info("auth callback: provider returned an error", slog.String("error", errParam))
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	code := q.Get("code")
	if code == "" {
		log.Warn("auth callback: missing authorization code")
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	if expectedState == "" || q.Get("state") != expectedState {
		log.Warn("auth callback: state mismatch")
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("auth callback: provider timed out", slog.String("error", err.Error()))
		} else {
			log.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		}
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	user, err := h.accounts.Login(r.Context(), profile)
	if err != nil {
		log.Error("auth callback: account upsert failed",
			slog.String("providerUserID", profile.ID),
			slog.String("error", err.Error()),
		)
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	token, _, err := h.sessions.Start(r.Context(), user.ID)
	if err != nil {
		log.Error("auth callback: session start failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		h.failSignIn(w, r, errOAuthFailed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

// HandleLogout ends the session and clears the cookie. It always succeeds.
//
// HTTP: GET /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.SessionCookie); err == nil && c.Value != "" {
		if err := h.sessions.End(r.Context(), c.Value); err != nil {
			h.logger.Error("logout: ending session", slog.String("error", err.Error()))
		}
	}
	h.clearCookie(w, auth.SessionCookie)

	http.Redirect(w, r, HomePath, http.StatusSeeOther)
}

// provider looks up the {provider} URL parameter. When it is not registered
// it redirects to sign-in and returns false.
func (h *AuthHandler) provider(w http.ResponseWriter, r *http.Request) (auth.Provider, bool) {
	name := chi.URLParam(r, "provider")
	if p, ok := h.providers[name]; ok {
		return p, true
	}

	if supportedProviders[name] {
		h.logger.Warn("login attempted for unconfigured provider", slog.String("provider", name))
		h.failSignIn(w, r, errOAuthUnavailable)
	} else {
		h.failSignIn(w, r, errUnknownProvider)
	}
	return nil, false
}

func (h *AuthHandler) failSignIn(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, SignInPath+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
