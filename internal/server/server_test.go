package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumora/website/internal/auth"
	"github.com/rumora/website/internal/config"
	"github.com/rumora/website/internal/server"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "discord" }

func (stubProvider) AuthURL(state string) string {
	return "https://discord.example/authorize?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(ctx context.Context, code string) (*auth.Profile, error) {
	return &auth.Profile{Provider: "discord", ID: "42", Username: "nova"}, nil
}

func testConfig() config.Config {
	return config.Config{
		Port:               3000,
		Environment:        config.EnvTest,
		BaseURL:            "http://localhost:3000",
		DiscordRedirectURI: "http://localhost:3000/auth/discord/callback",
		SessionTTL:         time.Hour,
		OAuthTimeout:       time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newServer(t *testing.T, cfg config.Config, opts ...server.Option) http.Handler {
	t.Helper()
	srv, err := server.New(cfg, testLogger(), opts...)
	require.NoError(t, err)
	return srv.Handler()
}

func get(h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	h := newServer(t, testConfig())

	tests := []struct {
		target     string
		wantStatus int
		wantHeader string
	}{
		{"/", http.StatusFound, "/testing"},
		{"/testing", http.StatusOK, ""},
		{"/testing/signin", http.StatusOK, ""},
		{"/testing/signup", http.StatusOK, ""},
		{"/testing/dashboard", http.StatusSeeOther, "/testing/signin"},
		{"/auth/discord", http.StatusSeeOther, "/testing/signin?error=oauth_unavailable"},
		{"/auth/discord/callback?code=abc", http.StatusSeeOther, "/testing/signin?error=oauth_unavailable"},
		{"/auth/logout", http.StatusSeeOther, "/testing"},
		{"/api/plans", http.StatusOK, ""},
		{"/api/services", http.StatusOK, ""},
		{"/api/user/profile", http.StatusUnauthorized, ""},
		{"/static/css/site.css", http.StatusOK, ""},
		{"/static/js/dashboard.js", http.StatusOK, ""},
		{"/health", http.StatusOK, ""},
		{"/metrics", http.StatusOK, ""},
		{"/nowhere", http.StatusNotFound, ""},
		{"/testing/nowhere", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := get(h, tt.target)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantHeader != "" {
				assert.Equal(t, tt.wantHeader, rr.Header().Get("Location"))
			}
		})
	}
}

func TestServer_HealthWithoutCredentials(t *testing.T) {
	h := newServer(t, testConfig())

	rr := get(h, "/health")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "undefined")

	var body struct {
		Status  string `json:"status"`
		Discord struct {
			Configured bool `json:"configured"`
		} `json:"discord"`
		SessionSecret bool `json:"sessionSecret"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.False(t, body.Discord.Configured)
	assert.False(t, body.SessionSecret)
}

func TestServer_LoginFlow(t *testing.T) {
	h := newServer(t, testConfig(), server.WithProviders(stubProvider{}))

	start := get(h, "/auth/discord")
	require.Equal(t, http.StatusFound, start.Code)
	var state *http.Cookie
	for _, c := range start.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state)

	cb := get(h, "/auth/discord/callback?code=abc&state="+url.QueryEscape(state.Value), state)
	require.Equal(t, http.StatusSeeOther, cb.Code)
	require.Equal(t, "/testing/dashboard", cb.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range cb.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.MaxAge > 0 {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.False(t, session.Secure, "plain-http base URL must not set Secure")

	dash := get(h, "/testing/dashboard", session)
	assert.Equal(t, http.StatusOK, dash.Code)
	assert.Contains(t, dash.Body.String(), "@nova")

	profile := get(h, "/api/user/profile", session)
	assert.Equal(t, http.StatusOK, profile.Code)
}

func TestServer_TemplateDirOverride(t *testing.T) {
	dir := t.TempDir()
	for name, doc := range map[string]string{
		"index.html":     "home {{USER_NAME}}",
		"signin.html":    "signin {{DISCORD_AUTH_URL}}",
		"signup.html":    "signup",
		"dashboard.html": "dashboard",
		"404.html":       "gone",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
	}

	cfg := testConfig()
	cfg.TemplateDir = dir
	h := newServer(t, cfg)

	assert.Equal(t, "home Guest", get(h, "/testing").Body.String())
	assert.Equal(t, "signin /auth/discord", get(h, "/testing/signin").Body.String())
}

func TestServer_TemplateDirMissingPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("home"), 0o644))

	cfg := testConfig()
	cfg.TemplateDir = dir

	_, err := server.New(cfg, testLogger())
	assert.Error(t, err)
}

func TestServer_RunJanitorStopsOnCancel(t *testing.T) {
	srv, err := server.New(testConfig(), testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunJanitor did not return after cancel")
	}
}
