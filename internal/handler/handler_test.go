package handler_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/config"
	"github.com/rumora/website/internal/handler"
	"github.com/rumora/website/internal/render"
	"github.com/rumora/website/internal/repository/memory"
	"github.com/rumora/website/internal/service"
	"github.com/rumora/website/web"
)

// fakeProvider is an auth.Provider that returns a canned profile and counts
// exchanges, so tests can assert that no exchange happened.
type fakeProvider struct {
	profile   *auth.Profile
	err       error
	exchanges atomic.Int32
	lastCode  string
}

func (p *fakeProvider) Name() string { return "discord" }

func (p *fakeProvider) AuthURL(state string) string {
	return "https://discord.example/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*auth.Profile, error) {
	if code == "" {
		return nil, auth.ErrMissingCode
	}
	p.exchanges.Add(1)
	p.lastCode = code
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.profile
	return &cp, nil
}

var errProviderDown = errors.New("discord: 503 Service Unavailable")

type testEnv struct {
	router   http.Handler
	provider *fakeProvider
	users    *memory.UserStore
	sessions *memory.SessionStore
	accounts *service.AccountService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEnv mounts the site's route table over the real services, in-memory
// stores it keeps handles on, and a fake provider. Pass withProvider=false
// to simulate a site without Discord credentials.
func newTestEnv(t *testing.T, withProvider bool) *testEnv {
	t.Helper()
	logger := testLogger()

	pages, err := render.LoadFS(web.Templates())
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("handler-test-session-secret")
	require.NoError(t, err)

	env := &testEnv{
		provider: &fakeProvider{profile: &auth.Profile{
			Provider:    "discord",
			ID:          "42",
			Username:    "nova",
			DisplayName: "Nova",
			AvatarURL:   auth.AvatarURL("42", "", "0"),
		}},
		users:    memory.NewUserStore(),
		sessions: memory.NewSessionStore(),
	}
	env.accounts = service.NewAccountService(env.users, nil, logger)
	sessionSvc := service.NewSessionService(env.sessions, env.users, tokens, time.Hour, logger)
	catalog, err := service.NewCatalogService(logger)
	require.NoError(t, err)

	var providers []auth.Provider
	if withProvider {
		providers = append(providers, env.provider)
	}

	r := chi.NewRouter()
	handler.Routes{
		Pages:    handler.NewPageHandler(pages, logger),
		Auth:     handler.NewAuthHandler(providers, env.accounts, sessionSvc, false, logger),
		User:     handler.NewUserHandler(env.accounts, logger),
		Catalog:  handler.NewCatalogHandler(catalog, logger),
		Health:   handler.NewHealthHandler(config.Config{Environment: config.EnvTest}),
		Sessions: sessionSvc,
	}.Mount(r)

	env.router = r
	return env
}

// do sends a request with the given cookies through the router.
func (e *testEnv) do(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// login runs the full redirect and callback and returns the session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()

	start := e.do(http.MethodGet, "/auth/discord")
	require.Equal(t, http.StatusFound, start.Code)
	state := findCookie(start.Result().Cookies(), "oauth_state")
	require.NotNil(t, state, "login must set the state cookie")

	cb := e.do(http.MethodGet, "/auth/discord/callback?code=abc&state="+url.QueryEscape(state.Value), state)
	require.Equal(t, http.StatusSeeOther, cb.Code)
	require.Equal(t, handler.DashboardPath, cb.Header().Get("Location"))

	session := findCookie(cb.Result().Cookies(), auth.SessionCookie)
	require.NotNil(t, session, "callback must set the session cookie")
	return session
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	return nil
}
